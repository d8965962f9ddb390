package arlo

import (
	"encoding/json"
	"net/http"

	"github.com/go-resty/resty/v2"
	log "github.com/sirupsen/logrus"
)

// apiResponse is the envelope every JSON endpoint wraps its payload in.
type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

// Transport is the authenticated HTTP layer shared by all entities. It
// reissues a request up to transportRetries times on any non-200 status
// before reporting failure.
type Transport struct {
	rest *resty.Client
}

// NewTransport returns a Transport rooted at baseURL.
func NewTransport(baseURL string) *Transport {
	rest := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json").
		SetRetryCount(transportRetries).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err == nil && r.StatusCode() != http.StatusOK
		})

	return &Transport{rest: rest}
}

// BaseURL returns the API root this transport is bound to.
func (t *Transport) BaseURL() string {
	return t.rest.BaseURL
}

// SetToken installs the session token used on every subsequent request.
func (t *Transport) SetToken(token string) {
	t.rest.SetHeader("Authorization", token)
}

// HTTPClient exposes the underlying client for the event stream connection.
func (t *Transport) HTTPClient() *http.Client {
	return t.rest.GetClient()
}

// Headers returns a copy of the default headers, for requests issued outside
// the resty client (the server-push subscription).
func (t *Transport) Headers() map[string]string {
	headers := make(map[string]string)
	for key, values := range t.rest.Header {
		if len(values) > 0 {
			headers[key] = values[0]
		}
	}
	return headers
}

// Get issues a GET and decodes the envelope data into out (which may be nil).
func (t *Transport) Get(path string, out interface{}) error {
	return t.do(resty.MethodGet, path, nil, out, nil)
}

// Post issues a POST with a JSON body and decodes the envelope data into out.
func (t *Transport) Post(path string, body, out interface{}, extraHeaders map[string]string) error {
	return t.do(resty.MethodPost, path, body, out, extraHeaders)
}

// Put issues a PUT with a JSON body and decodes the envelope data into out.
func (t *Transport) Put(path string, body, out interface{}) error {
	return t.do(resty.MethodPut, path, body, out, nil)
}

func (t *Transport) do(method, path string, body, out interface{}, extraHeaders map[string]string) error {
	req := t.rest.R()
	if body != nil {
		req.SetBody(body)
	}
	for key, value := range extraHeaders {
		req.SetHeader(key, value)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return err
	}

	if resp.IsError() {
		log.WithFields(log.Fields{"path": path, "status": resp.StatusCode()}).Debug("request failed")
		if resp.StatusCode() == http.StatusUnauthorized {
			return ErrRequestUnauthorized
		}
		return ErrRequestFailedStatusNotOK
	}

	envelope := apiResponse{}
	if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
		return err
	}
	if !envelope.Success {
		return ErrRequestUnsuccessful
	}

	if out != nil && len(envelope.Data) > 0 {
		return json.Unmarshal(envelope.Data, out)
	}
	return nil
}

// Download fetches a raw binary resource from an absolute URL, outside the
// JSON envelope contract. Used for presigned media content.
func (t *Transport) Download(url string) ([]byte, error) {
	resp, err := t.rest.R().Get(url)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, ErrRequestFailedStatusNotOK
	}
	return resp.Body(), nil
}
