package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Listing is the validated signature listing for one person.
type Listing struct {
	Primary string   // most recent stored locator, may be empty
	History []string // every stored locator in backend order
}

// FilePart is a file field of a multipart upload.
type FilePart struct {
	Name        string
	ContentType string
	Data        []byte
}

// OperatorError carries a failed create or delete. Message is the backend's
// text, verbatim, when it sent one.
type OperatorError struct {
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *OperatorError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return fmt.Sprintf("%s signature: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s signature failed (status %d)", e.Op, e.Status)
}

func (e *OperatorError) Unwrap() error { return e.Err }

// SchemaError reports a response that does not match the expected contract.
type SchemaError struct {
	Endpoint string
	Err      error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: unexpected response shape: %v", e.Endpoint, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// Options configures a Client.
type Options struct {
	APIURL string
	Token  string
	Client *http.Client
	Logger *slog.Logger
}

// Client talks to the signature endpoints of the work-order backend.
type Client struct {
	apiURL  string
	token   string
	http    *http.Client
	log     *slog.Logger
	listing *jsonschema.Schema
	status  *jsonschema.Schema
}

// New compiles the response schemas and returns a Client.
func New(opts Options) (*Client, error) {
	listing, err := compileSchema("listing", listingSchemaJSON)
	if err != nil {
		return nil, err
	}
	status, err := compileSchema("status", statusSchemaJSON)
	if err != nil {
		return nil, err
	}
	hc := opts.Client
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		apiURL:  strings.TrimRight(opts.APIURL, "/"),
		token:   opts.Token,
		http:    hc,
		log:     opts.Logger,
		listing: listing,
		status:  status,
	}, nil
}

type listingBody struct {
	Path *string  `json:"ttd_path"`
	List []string `json:"ttd_list"`
}

type statusBody struct {
	Success bool    `json:"success"`
	Message string  `json:"message"`
	Path    *string `json:"path"`
}

// List fetches the stored signatures of person npp.
func (c *Client) List(ctx context.Context, npp string) (Listing, error) {
	endpoint := c.apiURL + "/signatures/" + url.PathEscape(npp)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Listing{}, err
	}
	resp, err := c.do(req)
	if err != nil {
		return Listing{}, fmt.Errorf("list signatures: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return Listing{}, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Listing{}, fmt.Errorf("list signatures: status %d", resp.StatusCode)
	}
	var body listingBody
	if err := c.decode(resp.Body, c.listing, "listing", &body); err != nil {
		return Listing{}, err
	}
	out := Listing{History: body.List}
	if body.Path != nil {
		out.Primary = *body.Path
	}
	return out, nil
}

// Delete removes the stored signature at path, the locator exactly as List
// returned it.
func (c *Client) Delete(ctx context.Context, npp, path string) error {
	payload, err := json.Marshal(map[string]string{"npp": npp, "path": path})
	if err != nil {
		return &OperatorError{Op: "delete", Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.apiURL+"/signatures", bytes.NewReader(payload))
	if err != nil {
		return &OperatorError{Op: "delete", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	_, err = c.mutate(req, "delete")
	return err
}

// Upload stores file for npp and returns the new locator, empty when the
// backend did not report one.
func (c *Client) Upload(ctx context.Context, npp string, file FilePart) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("npp", npp); err != nil {
		return "", &OperatorError{Op: "create", Err: err}
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="ttd"; filename=%q`, file.Name))
	ct := file.ContentType
	if ct == "" {
		ct = "image/png"
	}
	h.Set("Content-Type", ct)
	pw, err := mw.CreatePart(h)
	if err != nil {
		return "", &OperatorError{Op: "create", Err: err}
	}
	if _, err := pw.Write(file.Data); err != nil {
		return "", &OperatorError{Op: "create", Err: err}
	}
	if err := mw.Close(); err != nil {
		return "", &OperatorError{Op: "create", Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/signatures", &buf)
	if err != nil {
		return "", &OperatorError{Op: "create", Err: err}
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	body, err := c.mutate(req, "create")
	if err != nil {
		return "", err
	}
	if body.Path != nil {
		return *body.Path, nil
	}
	return "", nil
}

func (c *Client) mutate(req *http.Request, op string) (statusBody, error) {
	resp, err := c.do(req)
	if err != nil {
		return statusBody{}, &OperatorError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	var body statusBody
	derr := c.decode(resp.Body, c.status, op, &body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusBody{}, &OperatorError{Op: op, Status: resp.StatusCode, Message: body.Message}
	}
	if derr != nil {
		return statusBody{}, &OperatorError{Op: op, Status: resp.StatusCode, Err: derr}
	}
	if !body.Success {
		return statusBody{}, &OperatorError{Op: op, Status: resp.StatusCode, Message: body.Message}
	}
	return body, nil
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json")
	if c.log != nil {
		c.log.Debug("backend.request", "method", req.Method, "url", req.URL.String())
	}
	return c.http.Do(req)
}

// decode validates the body against schema before binding it to dst.
func (c *Client) decode(r io.Reader, schema *jsonschema.Schema, endpoint string, dst any) error {
	raw, err := io.ReadAll(io.LimitReader(r, 1<<20))
	if err != nil {
		return fmt.Errorf("%s: read body: %w", endpoint, err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return &SchemaError{Endpoint: endpoint, Err: err}
	}
	if err := schema.Validate(doc); err != nil {
		return &SchemaError{Endpoint: endpoint, Err: err}
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return &SchemaError{Endpoint: endpoint, Err: err}
	}
	return nil
}

// IsSchemaError reports whether err is a contract mismatch.
func IsSchemaError(err error) bool {
	var se *SchemaError
	return errors.As(err, &se)
}
