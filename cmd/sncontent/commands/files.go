package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fivetwenty-io/sncontent/internal/constants"
	"github.com/fivetwenty-io/sncontent/pkg/content"
	"github.com/fivetwenty-io/sncontent/pkg/snclient"
)

// NewUploadCommand creates the upload command.
func NewUploadCommand() *cobra.Command {
	var (
		name         string
		contentType  string
		propertyName string
		chunkSize    int
		overwrite    bool
	)

	cmd := &cobra.Command{
		Use:   "upload FILE PARENT",
		Short: "Upload a file below a container",
		Long: `Upload a local file below the container PARENT (path or id).

Files larger than the chunk size are sent in chunks.`,
		Args: cobra.ExactArgs(constants.MinimumArgumentCount),
		RunE: func(cmd *cobra.Command, args []string) error {
			localPath := args[0]

			parent, err := parseTarget(args[1])
			if err != nil {
				return err
			}

			file, err := os.Open(localPath) //nolint:gosec // the user names the file to upload
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", localPath, err)
			}
			defer func() { _ = file.Close() }()

			info, err := file.Stat()
			if err != nil {
				return fmt.Errorf("failed to stat %s: %w", localPath, err)
			}

			if !info.Mode().IsRegular() {
				return fmt.Errorf("%w: %s", constants.ErrNotRegularFile, localPath)
			}

			if name == "" {
				name = filepath.Base(localPath)
			}

			req := &content.UploadRequest{
				ParentPath:   parent.Path,
				ParentID:     parent.ContentID,
				ContentName:  name,
				ContentType:  contentType,
				PropertyName: propertyName,
				Overwrite:    overwrite,
				ChunkSize:    chunkSize,
			}

			ctx := cmd.Context()

			repo, err := openRepository(ctx)
			if err != nil {
				return err
			}

			result, err := repo.Upload(ctx, req, file, info.Size())
			if err != nil {
				return fmt.Errorf("upload failed: %w", err)
			}

			return outputUploadResult(cmd, result)
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "name of the created content (default is the file name)")
	cmd.Flags().StringVar(&contentType, "content-type", "", "content type to create (default File)")
	cmd.Flags().StringVar(&propertyName, "property", "", "binary field to upload into (default Binary)")
	cmd.Flags().IntVar(&chunkSize, "chunk-size", constants.DefaultUploadChunkSize, "chunk size in bytes")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "overwrite an existing item with the same name")

	return cmd
}

func outputUploadResult(cmd *cobra.Command, result *content.UploadResult) error {
	switch viper.GetString("output") {
	case constants.FormatJSON, constants.FormatYAML:
		return writeStructured(cmd, result)
	}

	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.Header("Property", "Value")
	_ = table.Append("Id", fmt.Sprint(result.ID))
	_ = table.Append("Name", result.Name)
	_ = table.Append("Type", result.Type)
	_ = table.Append("Url", valueOrNA(result.URL))
	_ = table.Append("Length", fmt.Sprint(result.Length))

	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return nil
}

// NewDownloadCommand creates the download command.
func NewDownloadCommand() *cobra.Command {
	var (
		propertyName string
		outFile      string
	)

	cmd := &cobra.Command{
		Use:   "download TARGET",
		Short: "Download a binary field",
		Long: `Download a binary field of a content item.

The data is written to --file, or to the file name reported by the server,
or to stdout when --file is "-".`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := parseTarget(args[0])
			if err != nil {
				return err
			}

			ctx := cmd.Context()

			repo, err := openRepository(ctx)
			if err != nil {
				return err
			}

			stream, err := repo.GetBinaryStream(ctx, &content.LoadContentRequest{EntityOptions: target}, propertyName)
			if err != nil {
				return fmt.Errorf("failed to download %s: %w", args[0], err)
			}
			defer func() { _ = stream.Close() }()

			if outFile == "-" {
				_, err := io.Copy(cmd.OutOrStdout(), stream.Body)

				return err
			}

			dest := outFile
			if dest == "" {
				dest = downloadName(stream, target)
			}

			written, err := writeFile(dest, stream.Body)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Saved %d bytes to %s\n", written, dest)

			return nil
		},
	}

	cmd.Flags().StringVar(&propertyName, "property", "", "binary field to download (default Binary)")
	cmd.Flags().StringVarP(&outFile, "file", "f", "", "destination file, or - for stdout")

	return cmd
}

// downloadName picks a local file name for a download without --file.
func downloadName(stream *snclient.BinaryStream, target content.EntityOptions) string {
	if name := filepath.Base(stream.FileName); stream.FileName != "" && name != "." && name != "/" {
		return name
	}

	if target.Path != "" {
		return filepath.Base(target.Path)
	}

	return fmt.Sprintf("%d.bin", target.ContentID)
}

func writeFile(dest string, body io.Reader) (int64, error) {
	file, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, constants.ConfigFilePerm) //nolint:gosec // the user names the destination
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", dest, err)
	}

	written, err := io.Copy(file, body)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}

	if err != nil {
		return written, fmt.Errorf("failed to write %s: %w", dest, err)
	}

	return written, nil
}
