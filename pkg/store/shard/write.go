package shard

import (
	"io"
	"os"
	"path/filepath"

	"umatools/pkg/log"
	"umatools/pkg/store"
)

// Write streams reader into a temp file next to the final path and renames it
// into place once it has been synced, so Exists never sees a partial blob.
func (s *Store) Write(hash string, reader io.Reader) (int64, error) {
	targetPath := s.PathFor(hash)
	if targetPath == "" {
		return 0, store.InvalidHashError{Hash: hash}
	}

	targetDir := filepath.Dir(targetPath)
	if err := os.MkdirAll(targetDir, dirPerm); err != nil {
		log.Error().Err(err).Str("target_dir", targetDir).Msg("Failed to create shard directory")
		return 0, err
	}

	tempFile, err := os.CreateTemp(targetDir, tempPrefix+hash+"-*")
	if err != nil {
		log.Error().Err(err).Str("target_dir", targetDir).Msg("Failed to create temporary file")
		return 0, err
	}
	tempPath := tempFile.Name()

	written, err := io.Copy(tempFile, reader)
	if err == nil {
		err = tempFile.Sync()
	}
	if closeErr := tempFile.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Chmod(tempPath, filePerm)
	}
	if err == nil {
		err = os.Rename(tempPath, targetPath)
	}

	if err != nil {
		if removeErr := os.Remove(tempPath); removeErr != nil && !os.IsNotExist(removeErr) {
			log.Error().Err(removeErr).Str("temp_file", tempPath).Msg("Failed to remove temporary file after write error")
		}
		log.Error().Err(err).Str("hash", hash).Msg("Failed to store blob")
		return written, err
	}

	log.Debug().Str("hash", hash).Int64("size", written).Msg("Blob stored")
	return written, nil
}
