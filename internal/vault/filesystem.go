package vault

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"paracipher-go/internal/engine"
)

// FileSystemVault is a filesystem-based implementation of the EvidenceVault
// interface. It stores bundles and snapshots in a directory structure:
//
//	<root>/
//	  bundles/
//	    <ref>              (sealed evidence bundles, named by transfer ref)
//	  snapshots/
//	    <scope>.db         (ledger snapshots)
//	    <scope>.version    (snapshot version markers)
type FileSystemVault struct {
	name        string
	root        string
	bundleDir   string
	snapshotDir string
}

// NewFileSystemVault creates a new filesystem vault rooted at the given path.
func NewFileSystemVault(name, root string) (*FileSystemVault, error) {
	bundleDir := filepath.Join(root, "bundles")
	snapshotDir := filepath.Join(root, "snapshots")

	if err := os.MkdirAll(bundleDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create bundle directory: %w", err)
	}
	if err := os.MkdirAll(snapshotDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	return &FileSystemVault{
		name:        name,
		root:        root,
		bundleDir:   bundleDir,
		snapshotDir: snapshotDir,
	}, nil
}

// PutBundle stores an evidence bundle under ref. Bundles are write-once:
// storing a ref that already exists is rejected.
func (v *FileSystemVault) PutBundle(ref string, r io.Reader, size int64) error {
	destPath := filepath.Join(v.bundleDir, ref)
	if _, err := os.Stat(destPath); err == nil {
		return fmt.Errorf("bundle already archived: %s", ref)
	}
	return v.writeFile(destPath, r, size)
}

// GetBundle retrieves the bundle stored under ref and writes it to w.
func (v *FileSystemVault) GetBundle(ref string, w io.Writer) error {
	srcPath := filepath.Join(v.bundleDir, ref)
	return v.readFile(srcPath, w, fmt.Sprintf("bundle not found: %s", ref))
}

// PutSnapshot stores a ledger snapshot for a scope along with its version.
func (v *FileSystemVault) PutSnapshot(scope string, r io.Reader, size int64, version int64) error {
	destPath := filepath.Join(v.snapshotDir, scope+".db")
	if err := v.writeFile(destPath, r, size); err != nil {
		return err
	}

	versionPath := filepath.Join(v.snapshotDir, scope+".version")
	return os.WriteFile(versionPath, []byte(strconv.FormatInt(version, 10)), 0644)
}

// GetSnapshot retrieves the latest ledger snapshot for a scope.
func (v *FileSystemVault) GetSnapshot(scope string, w io.Writer) error {
	srcPath := filepath.Join(v.snapshotDir, scope+".db")
	return v.readFile(srcPath, w, fmt.Sprintf("snapshot not found for scope: %s", scope))
}

// SnapshotVersion returns the snapshot version for a scope.
// Returns 0 if no version file exists.
func (v *FileSystemVault) SnapshotVersion(scope string) (int64, error) {
	versionPath := filepath.Join(v.snapshotDir, scope+".version")
	data, err := os.ReadFile(versionPath)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("reading version file: %w", err)
	}

	version, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing version: %w", err)
	}
	return version, nil
}

// ValidateSetup verifies that the vault directories are accessible.
func (v *FileSystemVault) ValidateSetup() error {
	info, err := os.Stat(v.root)
	if err != nil {
		return fmt.Errorf("vault root not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("vault root is not a directory: %s", v.root)
	}

	for _, dir := range []string{v.bundleDir, v.snapshotDir} {
		info, err := os.Stat(dir)
		if err != nil {
			return fmt.Errorf("vault directory not accessible: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("vault path is not a directory: %s", dir)
		}
	}
	return nil
}

// writeFile writes data from r to destPath using atomic write (temp file +
// rename).
func (v *FileSystemVault) writeFile(destPath string, r io.Reader, expectedSize int64) error {
	dir := filepath.Dir(destPath)
	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmpFile, r)
	if err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if written != expectedSize {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", expectedSize, written)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

// readFile reads from srcPath and writes to w.
func (v *FileSystemVault) readFile(srcPath string, w io.Writer, notFoundMsg string) error {
	f, err := os.Open(srcPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%s", notFoundMsg)
		}
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	return nil
}

// Compile-time check that FileSystemVault implements the EvidenceVault interface.
var _ engine.EvidenceVault = (*FileSystemVault)(nil)
