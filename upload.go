package deta

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"golang.org/x/sync/errgroup"
)

// maxChunkSize is the threshold above which PutFile switches to the
// chunked upload session protocol, and the size of each part (10 MiB,
// the vendor's per-request limit).
const maxChunkSize = 10 * 1024 * 1024

// uploadConcurrency is the number of parts uploaded in parallel during
// a chunked upload.
const uploadConcurrency = 4

type startUploadResponse struct {
	UploadID string `json:"upload_id"`
}

// putChunked uploads content larger than maxChunkSize through the
// upload session protocol: initialize a session, upload 10 MiB parts
// (1-based part numbers) with bounded parallelism, then finalize. Any
// part failure aborts the session before the error is returned.
//
// Parts are keyed by part number, so resending one is idempotent and
// the usual retry policy applies to each part request.
func (d *Drive) putChunked(ctx context.Context, name string, r io.Reader) (*FileInfo, error) {
	uploadID, err := d.startUpload(ctx, name)
	if err != nil {
		return nil, err
	}

	d.rest.logger.Debug("chunked upload started",
		slog.String("drive", d.name),
		slog.String("file", name),
		slog.String("upload_id", uploadID),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uploadConcurrency)

	part := 0

	for {
		chunk := make([]byte, maxChunkSize)

		n, readErr := io.ReadFull(r, chunk)
		if readErr != nil && !errors.Is(readErr, io.EOF) && !errors.Is(readErr, io.ErrUnexpectedEOF) {
			_ = g.Wait()
			d.abortUpload(ctx, name, uploadID)

			return nil, fmt.Errorf("deta: reading upload content: %w", readErr)
		}

		if n > 0 {
			part++

			partNum := part
			data := chunk[:n]

			g.Go(func() error {
				return d.uploadPart(gctx, name, uploadID, partNum, data)
			})
		}

		if readErr != nil {
			break
		}
	}

	if err := g.Wait(); err != nil {
		d.abortUpload(ctx, name, uploadID)

		return nil, err
	}

	info, err := d.completeUpload(ctx, name, uploadID)
	if err != nil {
		d.abortUpload(ctx, name, uploadID)

		return nil, err
	}

	d.rest.logger.Debug("chunked upload complete",
		slog.String("drive", d.name),
		slog.String("file", name),
		slog.Int("parts", part),
	)

	return info, nil
}

// startUpload initializes a chunked upload session and returns its ID.
func (d *Drive) startUpload(ctx context.Context, name string) (string, error) {
	path := "/uploads?" + url.Values{"name": {name}}.Encode()

	var resp startUploadResponse
	if err := d.rest.doJSON(ctx, http.MethodPost, path, nil, &resp, false); err != nil {
		return "", err
	}

	if resp.UploadID == "" {
		return "", errors.New("deta: upload session response missing upload_id")
	}

	return resp.UploadID, nil
}

// uploadPart sends one part of a chunked upload.
func (d *Drive) uploadPart(ctx context.Context, name, uploadID string, part int, data []byte) error {
	d.rest.logger.Debug("uploading part",
		slog.String("file", name),
		slog.Int("part", part),
		slog.Int("size", len(data)),
	)

	path := fmt.Sprintf("/uploads/%s/parts?", url.PathEscape(uploadID)) +
		url.Values{"name": {name}, "part": {strconv.Itoa(part)}}.Encode()

	resp, err := d.rest.do(ctx, http.MethodPost, path, data, "application/octet-stream", true)
	if err != nil {
		return fmt.Errorf("deta: uploading part %d: %w", part, err)
	}

	drainAndClose(resp.Body)

	return nil
}

// completeUpload finalizes a chunked upload session.
func (d *Drive) completeUpload(ctx context.Context, name, uploadID string) (*FileInfo, error) {
	path := fmt.Sprintf("/uploads/%s?", url.PathEscape(uploadID)) +
		url.Values{"name": {name}}.Encode()

	var info FileInfo
	if err := d.rest.doJSON(ctx, http.MethodPatch, path, nil, &info, false); err != nil {
		return nil, err
	}

	return &info, nil
}

// abortUpload cancels a chunked upload session. Abort is best-effort
// cleanup on a path that is already failing, so its own error is only
// logged. It runs detached from the caller's context cancellation so
// the session is not leaked when the upload was canceled.
func (d *Drive) abortUpload(ctx context.Context, name, uploadID string) {
	path := fmt.Sprintf("/uploads/%s?", url.PathEscape(uploadID)) +
		url.Values{"name": {name}}.Encode()

	resp, err := d.rest.do(context.WithoutCancel(ctx), http.MethodDelete, path, nil, "", true)
	if err != nil {
		d.rest.logger.Warn("aborting upload session failed",
			slog.String("drive", d.name),
			slog.String("file", name),
			slog.String("upload_id", uploadID),
			slog.String("error", err.Error()),
		)

		return
	}

	drainAndClose(resp.Body)
}
