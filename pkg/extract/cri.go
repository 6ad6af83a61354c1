package extract

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"umatools/pkg/log"
	"umatools/pkg/models"
	"umatools/pkg/pool"
	"umatools/pkg/process"
	"umatools/pkg/progress"
)

const preSubsongSuffix = " [pre]"

// probe outputs that mean the container holds nothing to transcode
var noSubsongMarkers = []string{"decryption key not found", "bank has no subsongs"}

// Subsong is one stream reported by the probe. Raw keeps the tool's full
// JSON line.
type Subsong struct {
	Name *string
	Raw  json.RawMessage
}

type probeLine struct {
	StreamInfo struct {
		Name *string `json:"name"`
	} `json:"streamInfo"`
}

// ParseProbeOutput reads the probe's JSON-lines output. A marker line or
// unparseable output yields no subsongs. Preview streams are dropped.
func ParseProbeOutput(stdout []byte) []Subsong {
	text := strings.TrimSpace(strings.ReplaceAll(string(stdout), "\r\n", "\n"))
	if text == "" {
		return nil
	}
	for _, marker := range noSubsongMarkers {
		if strings.Contains(text, marker) {
			return nil
		}
	}

	var subsongs []Subsong
	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var parsed probeLine
		if err := json.Unmarshal(line, &parsed); err != nil {
			return nil
		}
		if parsed.StreamInfo.Name != nil && strings.HasSuffix(*parsed.StreamInfo.Name, preSubsongSuffix) {
			continue
		}
		subsongs = append(subsongs, Subsong{Name: parsed.StreamInfo.Name, Raw: append(json.RawMessage(nil), line...)})
	}
	if scanner.Err() != nil {
		return nil
	}
	return subsongs
}

// SubsongWAVPaths names the WAV output of each subsong. A single subsong goes
// next to the container; several go into a directory named after it.
func SubsongWAVPaths(containerPath string, subsongs []Subsong) []string {
	dir := filepath.Dir(containerPath)
	base := filepath.Base(containerPath)

	if len(subsongs) == 1 {
		return []string{filepath.Join(dir, base+".wav")}
	}

	groupDir := filepath.Join(dir, strings.ReplaceAll(base, ".", "_"))
	paths := make([]string, len(subsongs))
	for i, subsong := range subsongs {
		name := fmt.Sprintf("%08d", i)
		if subsong.Name != nil {
			name += "_" + sanitizeFileName(*subsong.Name)
		}
		paths[i] = filepath.Join(groupDir, name+".wav")
	}
	return paths
}

func sanitizeFileName(name string) string {
	return strings.NewReplacer("/", "_", "\\", "_").Replace(name)
}

// TranscodeCommands builds, per subsong, the decode-to-WAV step followed by
// the FLAC encode that deletes the WAV.
func (p *Pipeline) TranscodeCommands(containerPath string, wavPaths []string) []process.Command {
	threads := p.cfg.FLACThreads
	if threads < 1 {
		threads = 1
	}

	commands := make([]process.Command, 0, 2*len(wavPaths))
	for i, wav := range wavPaths {
		commands = append(commands,
			process.Command{
				Path: p.cfg.VGMStreamPath,
				Args: []string{"-o", wav, "-i", "-F", "-s", strconv.Itoa(i + 1), "-L", containerPath},
			},
			process.Command{
				Path: p.cfg.FLACPath,
				Args: []string{
					"--delete-input-file",
					"-f",
					"-V",
					"-j", strconv.Itoa(threads),
					"-l", "12",
					"-b", "4608",
					"-m",
					"-r", "8",
					"-A", "subdivide_tukey(5)",
					"-o", strings.TrimSuffix(wav, ".wav") + ".flac",
					wav,
				},
			},
		)
	}
	return commands
}

type transcodeJob struct {
	name     string
	commands []process.Command
}

// ExtractCRI mirrors each raw container into the output tree, probes it for
// subsongs and then transcodes every subsong to FLAC. Mirrors are removed
// once every transcode has finished. Any tool failure in the transcode phase
// aborts the batch.
func (p *Pipeline) ExtractCRI(ctx context.Context, entries []models.ResolvedEntry) (*Report, error) {
	if err := RequireAvailable(entries); err != nil {
		return nil, err
	}

	report := newReport(names(entries))
	if len(entries) == 0 {
		return report, nil
	}

	batchID := uuid.NewString()

	var (
		mu   sync.Mutex
		jobs []transcodeJob
	)

	probeBatch := progress.NewBatch("Analyzing CRI audio metadata", batchID, len(entries), p.cfg.Quiet)
	err := pool.Run(ctx, p.cfg.Concurrency, pool.AbortOnFirstError, entries,
		func(ctx context.Context, entry models.ResolvedEntry) error {
			defer probeBatch.Complete(entry.Name)

			job, err := p.prepareCRI(ctx, entry, report)
			if err != nil || job == nil {
				return err
			}
			mu.Lock()
			jobs = append(jobs, *job)
			mu.Unlock()
			return nil
		})
	probeBatch.Finish()
	if err != nil {
		p.removeMirrors(entries)
		return report, err
	}

	if len(jobs) == 0 {
		p.removeMirrors(entries)
		return report, nil
	}

	encodeBatch := progress.NewBatch("Encoding CRI audio data", batchID, len(jobs), p.cfg.Quiet)
	err = pool.Run(ctx, p.cfg.Concurrency, pool.AbortOnFirstError, jobs,
		func(ctx context.Context, job transcodeJob) error {
			for _, cmd := range job.commands {
				if _, err := p.runner.Run(ctx, cmd); err != nil {
					return fmt.Errorf("transcode %s: %w", job.name, err)
				}
			}
			report.set(job.name, StateTranscoded)

			if encodeBatch.Complete(job.name) {
				p.removeMirrors(entries)
			}
			return nil
		})
	encodeBatch.Finish()

	if err != nil {
		log.Error().Err(err).Str("batch", batchID).Str("mirror", p.cfg.MirrorDir()).
			Msg("CRI transcode aborted, raw mirrors left in place")
	}
	return report, err
}

// prepareCRI mirrors and probes one container. It returns nil when there is
// nothing to transcode.
func (p *Pipeline) prepareCRI(ctx context.Context, entry models.ResolvedEntry, report *Report) (*transcodeJob, error) {
	mirrorPath, err := filepath.Abs(p.cfg.MirrorPath(entry.Name))
	if err != nil {
		return nil, err
	}
	if err := p.mirror(p.store.PathFor(entry.Hash), mirrorPath); err != nil {
		return nil, fmt.Errorf("mirror %s: %w", entry.Name, err)
	}
	report.set(entry.Name, StateMirrored)

	probe := process.Command{Path: p.cfg.VGMStreamPath, Args: []string{"-m", "-I", "-S", "0", mirrorPath}}
	output, err := p.runner.Run(ctx, probe)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Debug().Err(err).Str("name", entry.Name).Msg("Probe failed, no subsongs")
		report.set(entry.Name, StateSkipped)
		return nil, nil
	}
	report.set(entry.Name, StateProbed)

	subsongs := ParseProbeOutput(output.Stdout)
	if len(subsongs) == 0 {
		report.set(entry.Name, StateSkipped)
		return nil, nil
	}

	if err := writeProbeInfo(mirrorPath+".json", subsongs); err != nil {
		return nil, err
	}

	wavPaths := SubsongWAVPaths(mirrorPath, subsongs)
	if len(subsongs) > 1 {
		if err := os.MkdirAll(filepath.Dir(wavPaths[0]), 0o750); err != nil {
			return nil, err
		}
	}

	report.set(entry.Name, StateQueued)
	return &transcodeJob{name: entry.Name, commands: p.TranscodeCommands(mirrorPath, wavPaths)}, nil
}

// mirror links target at linkPath, copying when links are not permitted.
func (p *Pipeline) mirror(target, linkPath string) error {
	if err := os.MkdirAll(filepath.Dir(linkPath), 0o750); err != nil {
		return err
	}
	if err := os.Remove(linkPath); err != nil && !os.IsNotExist(err) {
		return err
	}

	absTarget, err := filepath.Abs(target)
	if err != nil {
		return err
	}
	if err := os.Symlink(absTarget, linkPath); err == nil {
		return nil
	}

	log.Debug().Str("path", linkPath).Msg("Symlink not permitted, copying")
	return copyFile(absTarget, linkPath)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

func (p *Pipeline) removeMirrors(entries []models.ResolvedEntry) {
	for _, entry := range entries {
		mirrorPath := p.cfg.MirrorPath(entry.Name)
		if err := os.Remove(mirrorPath); err != nil && !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", mirrorPath).Msg("Failed to remove mirrored container")
		}
	}
}

func writeProbeInfo(path string, subsongs []Subsong) error {
	raw := make([]json.RawMessage, len(subsongs))
	for i, subsong := range subsongs {
		raw[i] = subsong.Raw
	}
	data, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
