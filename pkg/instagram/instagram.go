// Package instagram is a client for the Instagram Graph API calls the
// processor needs: post captions, comment replies, and posting a reply.
package instagram // import "github.com/joincivil/civil-debate-processor/pkg/instagram"

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/joincivil/civil-debate-processor/pkg/model"
)

const (
	// DefaultGraphAPIURL is the Graph API version the client is written against
	DefaultGraphAPIURL = "https://graph.facebook.com/v18.0"

	// DefaultTimeout is the per request timeout
	DefaultTimeout = 30 * time.Second

	replyFields = "id,username,text,timestamp,from"

	maxErrorBodyBytes = 64 * 1024
)

// APIError is an error response from the Graph API. Body holds the "error"
// object the API returned, if any.
type APIError struct {
	StatusCode int
	Message    string
	Body       map[string]interface{}
}

func (e *APIError) Error() string {
	return fmt.Sprintf("graph api error (status %v): %v", e.StatusCode, e.Message)
}

// ErrorBody returns the error object the API returned
func (e *APIError) ErrorBody() map[string]interface{} {
	return e.Body
}

// GraphAPIError returns the API's error object from err, or nil if err did
// not come from an API response
func GraphAPIError(err error) map[string]interface{} {
	apiErr, ok := errors.Cause(err).(*APIError)
	if !ok {
		return nil
	}
	return apiErr.Body
}

// NewClient returns a Graph API client. An empty baseURL uses
// DefaultGraphAPIURL and a zero timeout uses DefaultTimeout.
func NewClient(accessToken string, baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultGraphAPIURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		accessToken: accessToken,
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpClient:  &http.Client{Timeout: timeout},
	}
}

// Client calls the Graph API with a single access token
type Client struct {
	accessToken string
	baseURL     string
	httpClient  *http.Client
}

type graphReply struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
	From      *struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	} `json:"from"`
}

type graphRepliesResponse struct {
	Data []*graphReply `json:"data"`
}

// PostCaption returns the caption of a post
func (c *Client) PostCaption(ctx context.Context, postID string) (string, error) {
	resp := &struct {
		ID      string `json:"id"`
		Caption string `json:"caption"`
	}{}
	err := c.do(ctx, http.MethodGet, postID, url.Values{"fields": {"caption"}}, resp)
	if err != nil {
		return "", errors.Wrapf(err, "error fetching caption for post %v", postID)
	}
	return resp.Caption, nil
}

// CommentReplies returns the replies to a comment in the order the API
// returned them
func (c *Client) CommentReplies(ctx context.Context, commentID string) ([]*model.Reply, error) {
	resp := &graphRepliesResponse{}
	err := c.do(ctx, http.MethodGet, commentID+"/replies", url.Values{"fields": {replyFields}}, resp)
	if err != nil {
		return nil, errors.Wrapf(err, "error fetching replies for comment %v", commentID)
	}
	replies := make([]*model.Reply, 0, len(resp.Data))
	for _, r := range resp.Data {
		username := r.Username
		if username == "" && r.From != nil {
			username = r.From.Username
		}
		replies = append(replies, &model.Reply{
			ID:        r.ID,
			Username:  username,
			Text:      r.Text,
			Timestamp: r.Timestamp,
		})
	}
	return replies, nil
}

// PostReply posts text as a reply to the comment
func (c *Client) PostReply(ctx context.Context, commentID string, text string) (*model.PostedReply, error) {
	resp := &model.PostedReply{}
	err := c.do(ctx, http.MethodPost, commentID+"/replies", url.Values{"message": {text}}, resp)
	if err != nil {
		return nil, errors.Wrapf(err, "error posting reply to comment %v", commentID)
	}
	if resp.ID == "" {
		return nil, errors.Errorf("reply to comment %v returned no id", commentID)
	}
	return resp, nil
}

func (c *Client) do(ctx context.Context, method string, path string, params url.Values,
	result interface{}) error {
	params.Set("access_token", c.accessToken)
	endpoint := fmt.Sprintf("%v/%v", c.baseURL, path)

	var body io.Reader
	if method == http.MethodGet {
		endpoint = endpoint + "?" + params.Encode()
	} else {
		body = strings.NewReader(params.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close() // nolint: errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseAPIError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(result)
}

func parseAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode, Message: resp.Status}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	if err != nil {
		return apiErr
	}
	envelope := &struct {
		Error map[string]interface{} `json:"error"`
	}{}
	if json.Unmarshal(data, envelope) != nil || envelope.Error == nil {
		return apiErr
	}
	apiErr.Body = envelope.Error
	if message, ok := envelope.Error["message"].(string); ok && message != "" {
		apiErr.Message = message
	}
	return apiErr
}
