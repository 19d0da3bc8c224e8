package rename

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"retitle/internal/logging"
	"retitle/internal/services"
)

// Mode selects the filesystem operation used to realize a rename or move.
type Mode string

const (
	// ModeRename renames in place, copying across devices when it must.
	ModeRename Mode = "rename"
	// ModeMove behaves like rename; the two names exist so config reads
	// naturally for both the in-place and the into-library step.
	ModeMove Mode = "move"
	// ModeCopy duplicates the file, leaving the source untouched.
	ModeCopy Mode = "copy"
	// ModeSymlink leaves the source alone and plants a link at the
	// destination pointing back at it.
	ModeSymlink Mode = "symlink"
)

// ParseMode maps a config or flag value onto a Mode. Unknown values are a
// configuration error rather than a silent fallback.
func ParseMode(value string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", string(ModeMove):
		return ModeMove, nil
	case string(ModeRename):
		return ModeRename, nil
	case string(ModeCopy):
		return ModeCopy, nil
	case string(ModeSymlink):
		return ModeSymlink, nil
	default:
		return "", services.Wrap(services.ErrConfiguration, "relocate", "parse mode", fmt.Sprintf("unknown mode %q", value), nil)
	}
}

// Request describes one file operation. Exactly one of DestinationDir and
// DestinationPath must be set: DestinationDir keeps the source's basename,
// DestinationPath names the target in full. Relative destinations resolve
// against the source's directory.
type Request struct {
	Source          string
	Mode            Mode
	DestinationDir  string
	DestinationPath string
	Overwrite       bool
	LeaveSymlink    bool
}

// Relocator renames, moves, copies, and symlinks files, falling back to
// copy-and-delete for cross-device moves.
type Relocator struct {
	logger *slog.Logger
}

// NewRelocator returns a relocator logging through the given logger.
func NewRelocator(logger *slog.Logger) *Relocator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Relocator{logger: logging.NewComponentLogger(logger, "relocate")}
}

// Relocate performs the requested operation and returns the final absolute
// path. An existing destination without Overwrite returns ErrFileExists and
// other filesystem failures return ErrFilesystem; both are for the caller's
// skip policy to judge. A malformed request returns ErrConfiguration.
func (r *Relocator) Relocate(ctx context.Context, req Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", services.Wrap(services.ErrUserAbort, "relocate", "canceled", req.Source, err)
	}

	source, err := filepath.Abs(req.Source)
	if err != nil {
		return "", services.Wrap(services.ErrFilesystem, "relocate", "resolve source", req.Source, err)
	}

	target, err := resolveTarget(source, req)
	if err != nil {
		return "", err
	}
	if target == source {
		return target, nil
	}

	if _, statErr := os.Lstat(target); statErr == nil {
		if !req.Overwrite {
			return "", services.Wrap(services.ErrFileExists, "relocate", "check destination", target, nil)
		}
		// Symlink creation cannot overwrite; renames and copies can.
		if req.Mode == ModeSymlink {
			if err := os.Remove(target); err != nil {
				return "", services.Wrap(services.ErrFilesystem, "relocate", "clear destination", target, err)
			}
		}
	}

	if dir := filepath.Dir(target); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", services.Wrap(services.ErrFilesystem, "relocate", "create destination dir", dir, err)
		}
	}

	switch req.Mode {
	case ModeCopy:
		if err := copyFile(source, target); err != nil {
			return "", services.Wrap(services.ErrFilesystem, "relocate", "copy", target, err)
		}
	case ModeSymlink:
		if err := os.Symlink(source, target); err != nil {
			return "", services.Wrap(services.ErrFilesystem, "relocate", "symlink", target, err)
		}
	default:
		if err := r.moveFile(source, target); err != nil {
			return "", err
		}
		if req.LeaveSymlink {
			if err := os.Symlink(target, source); err != nil {
				r.logger.Warn("could not leave symlink behind", "source", source, "error", err.Error())
			}
		}
	}

	r.logger.Info("relocated file", "mode", string(req.Mode), "source", source, "target", target)
	return target, nil
}

// moveFile renames source onto target, degrading to a verified copy plus
// delete when the two sit on different devices.
func (r *Relocator) moveFile(source, target string) error {
	renameErr := os.Rename(source, target)
	if renameErr == nil {
		return nil
	}

	var linkErr *os.LinkError
	if errors.As(renameErr, &linkErr) && errors.Is(linkErr.Err, syscall.EXDEV) {
		if err := copyFile(source, target); err != nil {
			return services.Wrap(services.ErrFilesystem, "relocate", "cross-device copy", target, err)
		}
		if err := os.Remove(source); err != nil {
			r.logger.Warn("could not remove source after cross-device copy; duplicate remains",
				"source", source,
				"error", err.Error())
		}
		return nil
	}

	return services.Wrap(services.ErrFilesystem, "relocate", "rename", target, renameErr)
}

func resolveTarget(source string, req Request) (string, error) {
	hasDir := strings.TrimSpace(req.DestinationDir) != ""
	hasPath := strings.TrimSpace(req.DestinationPath) != ""
	if hasDir == hasPath {
		return "", services.Wrap(services.ErrConfiguration, "relocate", "destination", "exactly one of destination dir and destination path must be set", nil)
	}

	sourceDir := filepath.Dir(source)
	if hasDir {
		dir := req.DestinationDir
		if !filepath.IsAbs(dir) {
			dir = filepath.Join(sourceDir, dir)
		}
		return filepath.Join(dir, filepath.Base(source)), nil
	}

	path := req.DestinationPath
	if !filepath.IsAbs(path) {
		path = filepath.Join(sourceDir, path)
	}
	return filepath.Clean(path), nil
}

// copyFile copies source to target verifying size and content hash, then
// carries the source's timestamps over.
func copyFile(source, target string) error {
	info, err := os.Stat(source)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}

	in, err := os.Open(source)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(target)
	if err != nil {
		return err
	}
	defer func() {
		_ = out.Close()
	}()

	srcHasher := sha256.New()
	dstHasher := sha256.New()
	tee := io.TeeReader(in, srcHasher)
	multi := io.MultiWriter(out, dstHasher)

	written, err := io.Copy(multi, tee)
	if err != nil {
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	if written != info.Size() {
		_ = os.Remove(target)
		return fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", info.Size(), written)
	}
	if !bytes.Equal(srcHasher.Sum(nil), dstHasher.Sum(nil)) {
		_ = os.Remove(target)
		return fmt.Errorf("copy hash mismatch: file corrupted during copy")
	}

	preserveTimes(source, target, info)
	return nil
}

// preserveTimes applies the source's access and modification times to the
// target. Filesystems that refuse are tolerated; the copy already succeeded.
func preserveTimes(source, target string, info os.FileInfo) {
	atime := info.ModTime()
	var st unix.Stat_t
	if err := unix.Stat(source, &st); err == nil {
		atime = time.Unix(st.Atim.Sec, st.Atim.Nsec)
	}
	_ = os.Chtimes(target, atime, info.ModTime())
}
