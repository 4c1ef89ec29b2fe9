// Package tests provides the external test data used by the emulator
// tests. Data is downloaded on first use and cached next to this file.
package tests

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"golang.org/x/sync/errgroup"
)

const (
	testRomsURL   = `https://github.com/christopherpow/nes-test-roms/archive/refs/heads/master.zip`
	singleStepURL = `https://raw.githubusercontent.com/SingleStepTests/65x02/main/nes6502/v1/%02x.json`
	functionalURL = `https://raw.githubusercontent.com/Klaus2m5/6502_65C02_functional_tests/master/bin_files/6502_functional_test.bin`
)

// RomsPath returns the directory holding the nes-test-roms collection.
func RomsPath(tb testing.TB) string {
	return dataDir(tb, "nes-test-roms", fetchTestRoms)
}

// TomHarteProcTestsPath returns the directory holding the nes6502 single step
// tests, one JSON file per opcode, named after the opcode in lowercase hex.
func TomHarteProcTestsPath(tb testing.TB) string {
	return dataDir(tb, "tomharte.processor.tests", fetchSingleStepTests)
}

// FunctionalTestPath returns the path of Klaus Dormann's 6502 functional
// test, as a 64KB memory image. The test starts at $0400 and loops forever
// at $3469 on success, or on the failing test otherwise.
func FunctionalTestPath(tb testing.TB) string {
	dir := dataDir(tb, "6502.functional.test", func(tb testing.TB, dir string) error {
		f, err := os.Create(filepath.Join(dir, "6502_functional_test.bin"))
		if err != nil {
			return err
		}
		defer f.Close()
		return httpGet(functionalURL, f)
	})
	return filepath.Join(dir, "6502_functional_test.bin")
}

// dataDir returns the cached directory name, filling it with fetch if it
// doesn't exist yet. fetch populates a temporary directory which is then
// renamed, so that an interrupted download is never mistaken for a complete
// one. Tests are skipped in short mode or when the data can't be fetched.
func dataDir(tb testing.TB, name string, fetch func(tb testing.TB, dir string) error) string {
	tb.Helper()
	if testing.Short() {
		tb.Skipf("%s not used in short mode", name)
	}

	_, file, _, _ := runtime.Caller(0)
	root := filepath.Dir(file)
	dir := filepath.Join(root, name)

	if _, err := os.Stat(dir); !errors.Is(err, fs.ErrNotExist) {
		return dir
	}

	tb.Logf("%s not found, downloading it...", name)
	tmp, err := os.MkdirTemp(root, name+".*")
	if err != nil {
		tb.Fatal(err)
	}
	if err := fetch(tb, tmp); err != nil {
		os.RemoveAll(tmp)
		tb.Skipf("%s unavailable: %s", name, err)
	}
	if err := os.Rename(tmp, dir); err != nil {
		os.RemoveAll(tmp)
		tb.Fatal(err)
	}
	tb.Logf("%s downloaded in %s", name, dir)
	return dir
}

func httpGet(url string, w io.Writer) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: %s", url, resp.Status)
	}
	_, err = io.Copy(w, resp.Body)
	return err
}

func fetchTestRoms(tb testing.TB, dir string) error {
	tmpf, err := os.CreateTemp("", "nes-test-roms-*.zip")
	if err != nil {
		return err
	}
	defer os.Remove(tmpf.Name())
	defer tmpf.Close()

	if err := httpGet(testRomsURL, tmpf); err != nil {
		return err
	}
	n, err := unzip(tmpf.Name(), dir, "nes-test-roms-master/")
	if err != nil {
		return fmt.Errorf("decompress: %w", err)
	}
	tb.Log("decompressed", n, "files")
	return nil
}

// unzip extracts the zip archive into dest, dropping prefix from all
// archived paths. It returns the number of extracted files.
func unzip(archive, dest, prefix string) (int, error) {
	r, err := zip.OpenReader(archive)
	if err != nil {
		return 0, err
	}
	defer r.Close()

	n := 0
	for _, f := range r.File {
		name := strings.TrimPrefix(f.Name, prefix)
		if name == "" {
			continue
		}
		path := filepath.Join(dest, name)
		if !strings.HasPrefix(path, filepath.Clean(dest)+string(os.PathSeparator)) {
			return n, fmt.Errorf("%s: illegal file path", path)
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(path, os.ModePerm); err != nil {
				return n, err
			}
			continue
		}
		if err := extract(f, path); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func extract(f *zip.File, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// fetchSingleStepTests downloads the 256 test files concurrently.
func fetchSingleStepTests(tb testing.TB, dir string) error {
	var g errgroup.Group
	g.SetLimit(runtime.NumCPU())

	for opcode := range 256 {
		g.Go(func() error {
			f, err := os.Create(filepath.Join(dir, fmt.Sprintf("%02x.json", opcode)))
			if err != nil {
				return err
			}
			defer f.Close()
			return httpGet(fmt.Sprintf(singleStepURL, opcode), f)
		})
	}
	return g.Wait()
}
