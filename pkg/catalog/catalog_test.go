package catalog

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	"umatools/pkg/database"
	"umatools/pkg/models"
	"umatools/pkg/store/shard"
)

type fakeLister struct {
	names map[string]struct{}
	calls int
	err   error
}

func (f *fakeLister) Basenames() (map[string]struct{}, error) {
	f.calls++
	return f.names, f.err
}

// CatalogTestSuite tests loading and resolving the asset catalog
type CatalogTestSuite struct {
	suite.Suite
	tempDir string
	store   *shard.Store
	loader  *Loader
	ctx     context.Context
}

func (s *CatalogTestSuite) SetupTest() {
	s.tempDir = s.T().TempDir()
	s.ctx = context.Background()
	s.store = shard.New(filepath.Join(s.tempDir, "dat"))

	assetPath := filepath.Join(s.tempDir, "meta")
	masterPath := filepath.Join(s.tempDir, "master", "master.mdb")
	s.Require().NoError(os.MkdirAll(filepath.Dir(masterPath), 0o755))

	s.createDB(assetPath,
		`CREATE TABLE a (i INTEGER, n TEXT, d TEXT, g INTEGER, l INTEGER, c INTEGER, h TEXT, m TEXT, k INTEGER, s INTEGER, p INTEGER, e INTEGER)`,
		`INSERT INTO a VALUES (1, '//master/master.mdb', NULL, 0, 10, 0, 'MASTER01', 'master', 0, 1, 0, 0)`,
		`INSERT INTO a VALUES (2, 'chara/chr1001/pfb_chr1001', NULL, 0, 20, 0, 'CHARA001', 'chara', 0, 0, 0, 81985529216486896)`,
		`INSERT INTO a VALUES (3, 'sound/b/snd_bgm.awb', NULL, 0, 30, 0, 'SOUND001', 'sound', 0, 1, 0, 0)`,
	)
	s.createDB(masterPath,
		`CREATE TABLE text_data (id INTEGER, category INTEGER, text TEXT)`,
		`INSERT INTO text_data VALUES (1, 6, 'Special Week')`,
	)

	s.loader = NewLoader(LoaderConfig{AssetDBPath: assetPath, MasterDBPath: masterPath}, s.store)
}

func (s *CatalogTestSuite) createDB(path string, statements ...string) {
	db, err := sql.Open("sqlite", path)
	s.Require().NoError(err)
	defer db.Close()
	for _, stmt := range statements {
		_, err := db.ExecContext(s.ctx, stmt)
		s.Require().NoError(err, stmt)
	}
}

func (s *CatalogTestSuite) putBlob(hash string) {
	_, err := s.store.Write(hash, strings.NewReader(hash))
	s.Require().NoError(err)
}

func (s *CatalogTestSuite) TestLoad() {
	s.putBlob("CHARA001")

	cat, err := s.loader.Load(s.ctx)
	s.Require().NoError(err)
	s.Len(cat.Assets, 3)
	s.Require().NotNil(cat.Master)

	table, ok := cat.Master.Get("text_data")
	s.Require().True(ok)
	s.Equal("Special Week", table.Rows[0]["text"])

	stats := cat.Stats()
	s.Equal(Stats{Total: 3, Exists: 1, Missing: 2, OnDemand: 1}, stats)

	missing := cat.Missing()
	s.Len(missing, 2)
	s.Equal("MASTER01", missing[0].Hash)
	s.Equal("SOUND001", missing[1].Hash)

	s.Equal(uint64(0x123456789ABCDF0), cat.Assets[1].EncryptionKey)
}

func (s *CatalogTestSuite) TestFindMasterDB() {
	cat, err := s.loader.LoadAssets(s.ctx)
	s.Require().NoError(err)
	s.Nil(cat.Master)

	entry, ok := cat.FindMasterDB()
	s.Require().True(ok)
	s.Equal("MASTER01", entry.Hash)

	empty := &Catalog{Assets: []models.ResolvedEntry{{Entry: models.Entry{Name: "master.mdb", Kind: models.KindSound}}}}
	_, ok = empty.FindMasterDB()
	s.False(ok)
}

func (s *CatalogTestSuite) TestFilter() {
	cat, err := s.loader.LoadAssets(s.ctx)
	s.Require().NoError(err)

	matched := cat.Filter(regexp.MustCompile(`chr1001`))
	s.Require().Len(matched, 1)
	s.Equal("CHARA001", matched[0].Hash)

	s.Empty(cat.Filter(regexp.MustCompile(`^nothing$`)))
}

func (s *CatalogTestSuite) TestReloadReturnsNewSnapshot() {
	first, err := s.loader.Load(s.ctx)
	s.Require().NoError(err)
	s.False(first.Assets[2].IsFileExists)

	s.putBlob("SOUND001")

	second, err := s.loader.Reload(s.ctx, first, false)
	s.Require().NoError(err)
	s.NotSame(first, second)
	s.True(second.Assets[2].IsFileExists)
	s.False(first.Assets[2].IsFileExists, "previous snapshot must be left untouched")

	masterOnly, err := s.loader.Reload(s.ctx, first, true)
	s.Require().NoError(err)
	s.False(masterOnly.Assets[2].IsFileExists, "master-only reload carries assets over")
	masterOnly.Assets[0].Name = "changed"
	s.Equal("//master/master.mdb", first.Assets[0].Name)
}

func (s *CatalogTestSuite) TestLoadMissingAssetTable() {
	empty := filepath.Join(s.tempDir, "empty.db")
	s.createDB(empty, `CREATE TABLE other (x INTEGER)`)

	loader := NewLoader(LoaderConfig{AssetDBPath: empty, MasterDBPath: empty}, s.store)
	_, err := loader.Load(s.ctx)

	var loadErr *database.LoadError
	s.Require().ErrorAs(err, &loadErr)
	s.Equal(AssetTable, loadErr.Table)
}

func (s *CatalogTestSuite) TestLoadReportsTableProgress() {
	var seen []string
	s.loader.OnTable = func(path, table string, done, total int) {
		seen = append(seen, table)
	}

	_, err := s.loader.Load(s.ctx)
	s.Require().NoError(err)
	s.Equal([]string{"a", "text_data"}, seen)
}

func (s *CatalogTestSuite) TestCheckExistence() {
	entries := []models.Entry{{Hash: "AA01"}, {Hash: "BB02"}, {Hash: "CC03"}}
	lister := &fakeLister{names: map[string]struct{}{"AA01": {}, "CC03": {}}}

	resolved, err := CheckExistence(entries, lister)
	s.Require().NoError(err)
	s.Equal(1, lister.calls, "store is walked once")
	s.True(resolved[0].IsFileExists)
	s.False(resolved[1].IsFileExists)
	s.True(resolved[2].IsFileExists)
}

func (s *CatalogTestSuite) TestCheckExistenceIgnoresUnrelatedFiles() {
	entries := []models.Entry{{Hash: "AA01"}, {Hash: "BB02"}}
	s.putBlob("AA01")

	before, err := CheckExistence(entries, s.store)
	s.Require().NoError(err)

	s.putBlob("ZZ99")
	s.Require().NoError(os.WriteFile(filepath.Join(s.store.Root(), "README"), []byte("x"), 0o644))

	after, err := CheckExistence(entries, s.store)
	s.Require().NoError(err)
	s.Equal(before, after)
	s.True(after[0].IsFileExists)
	s.False(after[1].IsFileExists)
}

func (s *CatalogTestSuite) TestCheckExistenceListerError() {
	_, err := CheckExistence([]models.Entry{{Hash: "AA01"}}, &fakeLister{err: errors.New("permission denied")})
	s.Error(err)
}

func TestCatalogTestSuite(t *testing.T) {
	suite.Run(t, new(CatalogTestSuite))
}
