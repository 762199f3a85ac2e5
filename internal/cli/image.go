package cli

import (
	"archive/tar"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/akshayaggarwal99/podbox"
)

// buildContextTar tars dir's contents for use as a Docker/Podman build
// context, the shape BuildImage's /build endpoint expects.
func buildContextTar(dir string) ([]byte, error) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	err := filepath.Walk(dir, func(walked string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, walked)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		header, err := tar.FileInfoHeader(fi, "")
		if err != nil {
			return err
		}
		header.Name = filepath.ToSlash(rel)
		if err := tw.WriteHeader(header); err != nil {
			return err
		}
		if fi.IsDir() {
			return nil
		}
		f, err := os.Open(walked)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(tw, f)
		return err
	})
	if err != nil {
		return nil, err
	}
	if err := tw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var imageCmd = &cobra.Command{
	Use:   "image",
	Short: "Build, save, and load engine images",
}

var imageBuildCmd = &cobra.Command{
	Use:   "build [context-dir] [tag]",
	Short: "Build an image from a directory containing a Dockerfile",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		tarData, err := buildContextTar(args[0])
		if err != nil {
			return fmt.Errorf("tar build context: %w", err)
		}
		out, err := podbox.BuildImage(context.Background(), socket, tarData, args[1])
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(out)
		return err
	},
}

var imageSaveCmd = &cobra.Command{
	Use:   "save [ref] [local-tar-file]",
	Short: "Export an image as a tar archive",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		reader, err := podbox.SaveImage(context.Background(), socket, args[0])
		if err != nil {
			return err
		}
		defer reader.Close()
		out, err := os.Create(args[1])
		if err != nil {
			return err
		}
		defer out.Close()
		_, err = io.Copy(out, reader)
		return err
	},
}

var imageLoadCmd = &cobra.Command{
	Use:   "load [local-tar-file]",
	Short: "Import an image from a tar archive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		return podbox.LoadImage(context.Background(), socket, data)
	},
}

func init() {
	imageCmd.AddCommand(imageBuildCmd, imageSaveCmd, imageLoadCmd)
	RootCmd.AddCommand(imageCmd)
}
