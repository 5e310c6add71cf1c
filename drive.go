package deta

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
)

// ErrEmptyName is returned by Drive operations when a file name is the
// empty string.
var ErrEmptyName = errors.New("deta: file name must not be empty")

// Drive is a handle for one Deta Drive (hosted object store).
// It holds no state beyond the endpoint and credentials, and is safe
// for concurrent use.
type Drive struct {
	name string
	rest *restClient
}

// Name returns the Drive name this handle is bound to.
func (d *Drive) Name() string {
	return d.name
}

// FileInfo describes a stored file, as echoed by the service after an
// upload completes.
type FileInfo struct {
	Name      string `json:"name"`
	ProjectID string `json:"project_id"`
	DriveName string `json:"drive_name"`
	// UploadID is set only for files stored through the chunked
	// upload protocol.
	UploadID string `json:"upload_id,omitempty"`
}

// putFileConfig holds PutFile options.
type putFileConfig struct {
	contentType string
}

// PutFileOption configures a PutFile call.
type PutFileOption func(*putFileConfig)

// WithContentType sets the Content-Type stored with the file.
// When omitted, the service infers one from the file extension.
func WithContentType(ct string) PutFileOption {
	return func(cfg *putFileConfig) {
		cfg.contentType = ct
	}
}

// PutFile uploads the content read from r under the given name,
// overwriting any existing file with that name. Content up to 10 MiB
// is sent in a single request; larger content goes through the chunked
// upload session protocol, with parts uploaded in parallel. On any
// part failure the session is aborted before the error is returned.
func (d *Drive) PutFile(ctx context.Context, name string, r io.Reader, opts ...PutFileOption) (*FileInfo, error) {
	if name == "" {
		return nil, ErrEmptyName
	}

	var cfg putFileConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	// Read one byte past the chunk threshold to decide between the
	// simple and chunked paths without buffering the whole content.
	head, err := io.ReadAll(io.LimitReader(r, maxChunkSize+1))
	if err != nil {
		return nil, fmt.Errorf("deta: reading upload content: %w", err)
	}

	if len(head) <= maxChunkSize {
		return d.putSmall(ctx, name, head, cfg.contentType)
	}

	return d.putChunked(ctx, name, io.MultiReader(bytes.NewReader(head), r))
}

// putSmall uploads content that fits in a single request.
func (d *Drive) putSmall(ctx context.Context, name string, data []byte, contentType string) (*FileInfo, error) {
	d.rest.logger.Debug("putting file",
		slog.String("drive", d.name),
		slog.String("file", name),
		slog.Int("size", len(data)),
	)

	path := "/files?" + url.Values{"name": {name}}.Encode()

	resp, err := d.rest.do(ctx, http.MethodPost, path, data, contentType, false)
	if err != nil {
		return nil, err
	}
	defer drainAndClose(resp.Body)

	var info FileInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("deta: decoding put file response: %w", err)
	}

	return &info, nil
}

// GetFile streams the named file's content to w and returns the number
// of bytes written. Returns ErrNotFound if the file does not exist.
func (d *Drive) GetFile(ctx context.Context, name string, w io.Writer) (int64, error) {
	if name == "" {
		return 0, ErrEmptyName
	}

	d.rest.logger.Debug("downloading file",
		slog.String("drive", d.name),
		slog.String("file", name),
	)

	path := "/files/download?" + url.Values{"name": {name}}.Encode()

	resp, err := d.rest.do(ctx, http.MethodGet, path, nil, "", true)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("deta: streaming file content: %w", err)
	}

	d.rest.logger.Debug("download complete",
		slog.String("drive", d.name),
		slog.String("file", name),
		slog.Int64("bytes", n),
	)

	return n, nil
}

// GetFileBytes downloads the named file into memory.
// Returns ErrNotFound if the file does not exist.
func (d *Drive) GetFileBytes(ctx context.Context, name string) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := d.GetFile(ctx, name, &buf); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// ListFilesInput holds the parameters of a single ListFiles page request.
type ListFilesInput struct {
	// Limit caps the number of names per page. 0 means the server default.
	Limit int
	// Prefix restricts the listing to names starting with it.
	Prefix string
	// Last is the pagination cursor from the previous page's Paging.Last.
	Last string
}

// ListFilesOutput is one page of file names. Paging is nil when no
// more pages exist.
type ListFilesOutput struct {
	Names  []string `json:"names"`
	Paging *Paging  `json:"paging"`
}

// ListFiles returns a single page of file names. Callers that want the
// whole listing should use Files, which follows pagination cursors
// transparently.
func (d *Drive) ListFiles(ctx context.Context, input *ListFilesInput) (*ListFilesOutput, error) {
	if input == nil {
		input = &ListFilesInput{}
	}

	d.rest.logger.Debug("listing files",
		slog.String("drive", d.name),
		slog.String("prefix", input.Prefix),
		slog.Bool("has_cursor", input.Last != ""),
	)

	params := url.Values{}
	if input.Limit > 0 {
		params.Set("limit", strconv.Itoa(input.Limit))
	}

	if input.Prefix != "" {
		params.Set("prefix", input.Prefix)
	}

	if input.Last != "" {
		params.Set("last", input.Last)
	}

	path := "/files"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var out ListFilesOutput
	if err := d.rest.doJSON(ctx, http.MethodGet, path, nil, &out, true); err != nil {
		return nil, err
	}

	return &out, nil
}

// Files returns an iterator over all file names matching the input,
// fetching pages on demand. Each call to Files starts over from the
// first page.
func (d *Drive) Files(input *ListFilesInput) *FileIterator {
	if input == nil {
		input = &ListFilesInput{}
	}

	return &FileIterator{drive: d, input: *input}
}

// FileIterator walks a Drive listing page by page. Like Iterator, it
// is lazy and not safe for concurrent use.
type FileIterator struct {
	drive *Drive
	input ListFilesInput

	buf       []string
	pos       int
	exhausted bool
	err       error
}

// Next returns the next file name. When the listing is exhausted it
// returns Done. Once Next returns a non-nil error, every subsequent
// call returns the same error.
func (it *FileIterator) Next(ctx context.Context) (string, error) {
	if it.err != nil {
		return "", it.err
	}

	for it.pos >= len(it.buf) {
		if it.exhausted {
			it.err = Done
			return "", Done
		}

		out, err := it.drive.ListFiles(ctx, &it.input)
		if err != nil {
			it.err = err
			return "", err
		}

		it.buf = out.Names
		it.pos = 0

		if out.Paging == nil || out.Paging.Last == "" {
			it.exhausted = true
		} else {
			it.input.Last = out.Paging.Last
		}
	}

	name := it.buf[it.pos]
	it.pos++

	return name, nil
}

type deleteFilesRequest struct {
	Names []string `json:"names"`
}

// DeleteFilesOutput reports a batch delete: the names removed and, per
// failed name, the reason it could not be removed.
type DeleteFilesOutput struct {
	Deleted []string          `json:"deleted"`
	Failed  map[string]string `json:"failed"`
}

// DeleteFiles removes the named files. Deleting an absent name is not
// an error; the service reports it as deleted.
func (d *Drive) DeleteFiles(ctx context.Context, names ...string) (*DeleteFilesOutput, error) {
	d.rest.logger.Debug("deleting files",
		slog.String("drive", d.name),
		slog.Int("count", len(names)),
	)

	var out DeleteFilesOutput
	if err := d.rest.doJSON(ctx, http.MethodDelete, "/files", deleteFilesRequest{Names: names}, &out, true); err != nil {
		return nil, err
	}

	return &out, nil
}
