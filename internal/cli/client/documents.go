package client

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// UploadCmd creates the upload command. The input file carries pre-extracted
// page text as JSON ({"pages":[{"page":1,"text":"..."}]}); PDF extraction
// happens upstream of this tool.
func UploadCmd() *cobra.Command {
	var (
		name         string
		originalPath string
		contentType  string
	)

	cmd := &cobra.Command{
		Use:   "upload <pages.json>",
		Short: "Ingest a document from pre-extracted page text",
		Long:  "Uploads page text for embedding and storage, streaming ingestion progress as it runs.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpload(args[0], name, originalPath, contentType)
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "Document name (defaults to the input filename)")
	cmd.Flags().StringVar(&originalPath, "original", "", "Original file to archive alongside the chunks")
	cmd.Flags().StringVar(&contentType, "content-type", "application/pdf", "Content type of the archived original")

	return cmd
}

type uploadPayload struct {
	Pages          json.RawMessage `json:"pages"`
	OriginalBase64 string          `json:"original_base64,omitempty"`
	ContentType    string          `json:"content_type,omitempty"`
}

func runUpload(pagesPath, name, originalPath, contentType string) error {
	data, err := os.ReadFile(pagesPath)
	if err != nil {
		return fmt.Errorf("failed to read pages file: %w", err)
	}

	var doc struct {
		Pages json.RawMessage `json:"pages"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("invalid pages file: %w", err)
	}
	if len(doc.Pages) == 0 {
		return fmt.Errorf("pages file has no pages")
	}

	if name == "" {
		name = strings.TrimSuffix(baseName(pagesPath), ".json")
	}

	payload := uploadPayload{Pages: doc.Pages}
	if originalPath != "" {
		original, err := os.ReadFile(originalPath)
		if err != nil {
			return fmt.Errorf("failed to read original file: %w", err)
		}
		payload.OriginalBase64 = base64.StdEncoding.EncodeToString(original)
		payload.ContentType = contentType
	}

	api, err := NewAPIClient()
	if err != nil {
		return err
	}

	return api.PostStream("/documents/"+url.PathEscape(name)+"/ingest", payload, func(line string) {
		fmt.Println(line)
	})
}

func baseName(path string) string {
	if i := strings.LastIndexAny(path, "/\\"); i >= 0 {
		return path[i+1:]
	}
	return path
}

// DocumentsCmd creates the documents command group.
func DocumentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "documents",
		Short: "Manage ingested documents",
	}

	cmd.AddCommand(documentsListCmd())
	cmd.AddCommand(documentsDeleteCmd())
	cmd.AddCommand(documentsPreviewCmd())
	cmd.AddCommand(documentsDownloadCmd())

	return cmd
}

func documentsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List ingested documents with chunk counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClient()
			if err != nil {
				return err
			}

			resp, err := api.Get("/documents")
			if err != nil {
				return fmt.Errorf("list failed: %w", err)
			}

			var docs []struct {
				Name       string `json:"name"`
				ChunkCount int64  `json:"chunk_count"`
			}
			if err := json.Unmarshal(resp.Data, &docs); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			if len(docs) == 0 {
				fmt.Println("No documents ingested.")
				return nil
			}

			for _, d := range docs {
				fmt.Printf("%s (%d chunks)\n", d.Name, d.ChunkCount)
			}
			return nil
		},
	}
}

func documentsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a document and all its chunks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClient()
			if err != nil {
				return err
			}

			resp, err := api.Delete("/documents/" + url.PathEscape(args[0]))
			if err != nil {
				return fmt.Errorf("delete failed: %w", err)
			}

			var result struct {
				Deleted int64 `json:"deleted"`
			}
			if err := json.Unmarshal(resp.Data, &result); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			fmt.Printf("Deleted %d chunks.\n", result.Deleted)
			return nil
		},
	}
}

func documentsDownloadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "download <name>",
		Short: "Print a download link for the archived original file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClient()
			if err != nil {
				return err
			}

			resp, err := api.Get("/documents/" + url.PathEscape(args[0]) + "/download")
			if err != nil {
				return fmt.Errorf("download failed: %w", err)
			}

			var result struct {
				URL string `json:"url"`
			}
			if err := json.Unmarshal(resp.Data, &result); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			fmt.Println(result.URL)
			return nil
		},
	}
}

func documentsPreviewCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "preview <name>",
		Short: "Show the first chunks of a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClient()
			if err != nil {
				return err
			}

			resp, err := api.Get(fmt.Sprintf("/documents/%s/preview?limit=%d", url.PathEscape(args[0]), limit))
			if err != nil {
				return fmt.Errorf("preview failed: %w", err)
			}

			var result struct {
				Name   string   `json:"name"`
				Chunks []string `json:"chunks"`
			}
			if err := json.Unmarshal(resp.Data, &result); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			for i, chunk := range result.Chunks {
				fmt.Printf("--- chunk %d ---\n%s\n\n", i, chunk)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 5, "Number of chunks to show")

	return cmd
}
