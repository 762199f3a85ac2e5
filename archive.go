package podbox

import (
	"archive/tar"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	cpath "path"
	"path/filepath"
	"strings"
	"time"
)

// shQuote wraps s in single quotes for safe interpolation into a shell -c
// command string, escaping any embedded single quotes the POSIX way.
func shQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// WriteFile uploads data as path inside the container, building a
// single-entry tar archive and PUTing it to the archive endpoint (the
// only way the engine API accepts file writes). The destination
// directory is created first, since the archive endpoint itself refuses
// to create one.
func (c *Container) WriteFile(ctx context.Context, path string, data []byte, mode int64) error {
	if mode == 0 {
		mode = 0644
	}
	dir := cpath.Dir(path)
	if _, err := c.Run(ctx, "mkdir -p "+shQuote(dir)); err != nil {
		return fmt.Errorf("podbox: ensure parent directory %q: %w", dir, err)
	}

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	header := &tar.Header{
		Name:    cpath.Base(path),
		Size:    int64(len(data)),
		Mode:    mode,
		ModTime: time.Now(),
	}
	if err := tw.WriteHeader(header); err != nil {
		return fmt.Errorf("podbox: tar header: %w", err)
	}
	if _, err := tw.Write(data); err != nil {
		return fmt.Errorf("podbox: tar body: %w", err)
	}
	if err := tw.Close(); err != nil {
		return fmt.Errorf("podbox: tar close: %w", err)
	}

	if err := c.client.PushArchive(ctx, c.id, dir, buf.Bytes()); err != nil {
		return translate(err)
	}
	return nil
}

// ReadFile downloads the single file at path, unwrapping the one-entry
// tar archive the engine returns.
func (c *Container) ReadFile(ctx context.Context, path string) ([]byte, error) {
	reader, err := c.client.PullArchive(ctx, c.id, path)
	if err != nil {
		return nil, translate(err)
	}
	defer reader.Close()

	tr := tar.NewReader(reader)
	if _, err := tr.Next(); err != nil {
		return nil, &FileNotFoundError{Path: path}
	}
	data, err := io.ReadAll(tr)
	if err != nil {
		return nil, fmt.Errorf("podbox: reading tar body: %w", err)
	}
	return data, nil
}

// ListFiles lists the entries under path by requesting its tar archive
// and reading headers only, matching the teacher's own
// CopyFromContainer-as-listing trick.
func (c *Container) ListFiles(ctx context.Context, path string) ([]FileEntry, error) {
	reader, err := c.client.PullArchive(ctx, c.id, path)
	if err != nil {
		return nil, translate(err)
	}
	defer reader.Close()

	tr := tar.NewReader(reader)
	var entries []FileEntry
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("podbox: reading tar headers: %w", err)
		}
		name := strings.TrimPrefix(header.Name, "/")
		entries = append(entries, FileEntry{
			Name:         filepath.Base(name),
			Path:         name,
			Size:         header.Size,
			Mode:         header.Mode,
			IsDir:        header.Typeflag == tar.TypeDir,
			LastModified: header.ModTime,
		})
	}
	return entries, nil
}

// resetTarHeader normalizes ownership and mode the way pocketdock's push
// does before tarring a host path: uid/gid 0, uname/gname "root", and a
// canonical 0755/0644 mode, so a pushed tree never carries the uploading
// host's uid/gid into the container.
func resetTarHeader(h *tar.Header) {
	h.Uid = 0
	h.Gid = 0
	h.Uname = "root"
	h.Gname = "root"
	if h.Typeflag == tar.TypeDir {
		h.Mode = 0755
	} else {
		h.Mode = 0644
	}
}

// addTarEntry writes one tar header+body pair for the file or directory at
// hostPath, re-rooted under arcName inside the archive.
func addTarEntry(tw *tar.Writer, hostPath, arcName string, fi os.FileInfo) error {
	header, err := tar.FileInfoHeader(fi, "")
	if err != nil {
		return err
	}
	header.Name = arcName
	if fi.IsDir() {
		header.Name += "/"
	}
	resetTarHeader(header)
	if err := tw.WriteHeader(header); err != nil {
		return err
	}
	if fi.IsDir() {
		return nil
	}
	f, err := os.Open(hostPath)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(tw, f)
	return err
}

// buildPushArchive walks hostPath (a file or a directory tree) and tars
// it, re-rooted under destName, the way pocketdock.push tars a host
// filesystem path before uploading it: ownership normalized, ready to
// extract directly at the destination's parent directory.
func buildPushArchive(hostPath, destName string) ([]byte, error) {
	info, err := os.Stat(hostPath)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)

	if !info.IsDir() {
		if err := addTarEntry(tw, hostPath, destName, info); err != nil {
			return nil, err
		}
		return buf.Bytes(), tw.Close()
	}

	err = filepath.Walk(hostPath, func(walked string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(hostPath, walked)
		if err != nil {
			return err
		}
		arcName := destName
		if rel != "." {
			arcName = cpath.Join(destName, filepath.ToSlash(rel))
		}
		return addTarEntry(tw, walked, arcName, fi)
	})
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), tw.Close()
}

// Push copies hostPath (a file or directory, recursively) onto
// containerDest inside the container, normalizing ownership to
// uid=gid=0 the way pocketdock.push does, and ensures containerDest's
// parent directory exists first.
func (c *Container) Push(ctx context.Context, hostPath, containerDest string) error {
	if _, err := os.Stat(hostPath); err != nil {
		return fmt.Errorf("podbox: host path %q: %w", hostPath, err)
	}

	destName := cpath.Base(containerDest)
	tarData, err := buildPushArchive(hostPath, destName)
	if err != nil {
		return fmt.Errorf("podbox: build archive for %q: %w", hostPath, err)
	}

	destDir := cpath.Dir(containerDest)
	if _, err := c.Run(ctx, "mkdir -p "+shQuote(destDir)); err != nil {
		return fmt.Errorf("podbox: ensure parent directory %q: %w", destDir, err)
	}

	if err := c.client.PushArchive(ctx, c.id, destDir, tarData); err != nil {
		return translate(err)
	}
	return nil
}

// Pull copies containerSrc (a file or directory tree inside the
// container) to hostDest on the host, the way pocketdock.pull does: a
// single-file archive is written directly to hostDest, while a
// multi-entry archive is extracted into hostDest as a directory.
func (c *Container) Pull(ctx context.Context, containerSrc, hostDest string) error {
	reader, err := c.client.PullArchive(ctx, c.id, containerSrc)
	if err != nil {
		return translate(err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("podbox: reading archive: %w", err)
	}

	members, err := tarHeaders(data)
	if err != nil {
		return fmt.Errorf("podbox: reading tar headers: %w", err)
	}
	if len(members) == 1 && members[0].Typeflag == tar.TypeReg {
		tr := tar.NewReader(bytes.NewReader(data))
		if _, err := tr.Next(); err != nil {
			return fmt.Errorf("podbox: reading tar body: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(hostDest), 0755); err != nil {
			return err
		}
		out, err := os.OpenFile(hostDest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
		if err != nil {
			return err
		}
		defer out.Close()
		_, err = io.Copy(out, tr)
		return err
	}

	// The engine's archive endpoint prefixes every entry with the
	// requested path's base name (e.g. pulling ".../tree" yields entries
	// named "tree/a.txt"); strip that single leading component so hostDest
	// itself becomes the root of the pulled tree, mirroring Push's
	// destName re-rooting on the way in.
	strip := cpath.Base(strings.TrimSuffix(containerSrc, "/")) + "/"
	return extractTar(data, hostDest, strip)
}

// tarHeaders pre-scans a tar archive's headers without extracting any
// file bodies, used to decide whether a pull result is a single file or a
// directory tree.
func tarHeaders(data []byte) ([]*tar.Header, error) {
	tr := tar.NewReader(bytes.NewReader(data))
	var headers []*tar.Header
	for {
		header, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		headers = append(headers, header)
	}
	return headers, nil
}

// extractTar writes every entry of a tar archive underneath destDir,
// stripping the stripPrefix leading path component each entry carries,
// creating directories as needed, and rejecting any entry that would
// escape destDir via "..".
func extractTar(data []byte, destDir, stripPrefix string) error {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return err
	}
	tr := tar.NewReader(bytes.NewReader(data))
	for {
		header, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		name := strings.TrimPrefix(header.Name, "/")
		name = strings.TrimPrefix(name, stripPrefix)
		if name == "" {
			continue
		}
		target := filepath.Join(destDir, filepath.FromSlash(name))
		if !strings.HasPrefix(target, filepath.Clean(destDir)+string(os.PathSeparator)) && target != filepath.Clean(destDir) {
			return fmt.Errorf("podbox: tar entry %q escapes destination", header.Name)
		}
		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
				return err
			}
			out, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
			if err != nil {
				return err
			}
			if _, err := io.Copy(out, tr); err != nil {
				out.Close()
				return err
			}
			out.Close()
		}
	}
}
