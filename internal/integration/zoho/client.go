package zoho

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/orderrelay/orderrelay/internal/config"
	ierr "github.com/orderrelay/orderrelay/internal/errors"
	"github.com/orderrelay/orderrelay/internal/httpclient"
	"github.com/orderrelay/orderrelay/internal/logger"
)

// Client defines the Zoho CRM operations the relay depends on. Each call is
// a single attempt against the record API; transport failures propagate and
// abort the sync for that event.
type Client interface {
	// SearchContactByEmail returns the first contact matching the email,
	// or nil when the CRM has no match. "No match" is not an error.
	SearchContactByEmail(ctx context.Context, email string) (*Contact, error)

	// CreateContact creates a contact and returns it with its new id
	CreateContact(ctx context.Context, req *ContactCreateRequest) (*Contact, error)

	// CreateDeal creates a deal linked to an existing contact
	CreateDeal(ctx context.Context, req *DealCreateRequest) (*Deal, error)
}

type apiClient struct {
	cfg        config.ZohoConfig
	tokens     TokenSource
	httpClient httpclient.Client
	logger     *logger.Logger
}

// NewClient creates a Zoho CRM client authenticated through the token source
func NewClient(cfg config.ZohoConfig, tokens TokenSource, httpClient httpclient.Client, logger *logger.Logger) Client {
	return &apiClient{
		cfg:        cfg,
		tokens:     tokens,
		httpClient: httpClient,
		logger:     logger,
	}
}

func (c *apiClient) SearchContactByEmail(ctx context.Context, email string) (*Contact, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	searchURL := fmt.Sprintf("%s/Contacts/search?email=%s", c.cfg.APIBaseURL, url.QueryEscape(email))

	req := &httpclient.Request{
		Method: http.MethodGet,
		URL:    searchURL,
		Headers: map[string]string{
			"Authorization": "Zoho-oauthtoken " + token,
		},
	}

	resp, err := c.httpClient.Send(ctx, req)
	if err != nil {
		// Zoho signals "no match" with a 404 on some editions; that is a
		// normal empty result, not a lookup failure
		if httpErr, ok := httpclient.IsHTTPError(err); ok && httpErr.StatusCode == http.StatusNotFound {
			return nil, nil
		}
		return nil, ierr.WithError(err).
			WithHint("Zoho contact search failed").
			Mark(ierr.ErrHTTPClient)
	}

	// 204 is Zoho's usual empty search result
	if resp.StatusCode == http.StatusNoContent || len(resp.Body) == 0 {
		return nil, nil
	}

	var result envelope[Contact]
	if err := json.Unmarshal(resp.Body, &result); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to decode Zoho contact search response").
			Mark(ierr.ErrInternal)
	}

	if len(result.Data) == 0 {
		return nil, nil
	}

	return &result.Data[0], nil
}

func (c *apiClient) CreateContact(ctx context.Context, req *ContactCreateRequest) (*Contact, error) {
	if req.LastName == "" {
		return nil, ierr.NewError("contact last name is required").
			WithHint("Zoho rejects contacts without a Last_Name").
			Mark(ierr.ErrValidation)
	}

	result, err := c.createRecord(ctx, "Contacts", req)
	if err != nil {
		return nil, err
	}

	return &Contact{
		ID:        result.Details.ID,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	}, nil
}

func (c *apiClient) CreateDeal(ctx context.Context, req *DealCreateRequest) (*Deal, error) {
	record := dealRecord{
		DealName:    req.Name,
		Amount:      req.Amount,
		Stage:       req.Stage,
		Description: req.Description,
	}
	if req.ContactID != "" {
		record.ContactName = &recordPointer{ID: req.ContactID}
	}

	result, err := c.createRecord(ctx, "Deals", record)
	if err != nil {
		return nil, err
	}

	return &Deal{
		ID:     result.Details.ID,
		Name:   req.Name,
		Amount: req.Amount,
		Stage:  req.Stage,
	}, nil
}

// createRecord posts a single record to a Zoho module and returns the
// mutation result carrying the new record id
func (c *apiClient) createRecord(ctx context.Context, module string, record any) (*mutationResult, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(envelope[any]{Data: []any{record}})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("Failed to marshal %s create request", module).
			Mark(ierr.ErrInternal)
	}

	req := &httpclient.Request{
		Method: http.MethodPost,
		URL:    fmt.Sprintf("%s/%s", c.cfg.APIBaseURL, module),
		Headers: map[string]string{
			"Authorization": "Zoho-oauthtoken " + token,
			"Content-Type":  "application/json",
		},
		Body: body,
	}

	resp, err := c.httpClient.Send(ctx, req)
	if err != nil {
		if httpErr, ok := httpclient.IsHTTPError(err); ok {
			c.logger.Errorw("zoho record creation failed",
				"module", module,
				"status", httpErr.StatusCode,
				"body", string(httpErr.Response))
			return nil, ierr.NewError("zoho record creation failed").
				WithHintf("Zoho API returned status %d for %s", httpErr.StatusCode, module).
				Mark(ierr.ErrHTTPClient)
		}
		return nil, ierr.WithError(err).
			WithHintf("Network error creating %s record in Zoho", module).
			Mark(ierr.ErrHTTPClient)
	}

	var result envelope[mutationResult]
	if err := json.Unmarshal(resp.Body, &result); err != nil {
		return nil, ierr.WithError(err).
			WithHintf("Failed to decode Zoho %s response", module).
			Mark(ierr.ErrInternal)
	}

	if len(result.Data) == 0 {
		return nil, ierr.NewError("zoho returned an empty mutation response").
			WithHintf("Expected one result for the %s record", module).
			Mark(ierr.ErrHTTPClient)
	}

	mutation := result.Data[0]
	if mutation.Code != "SUCCESS" {
		c.logger.Errorw("zoho rejected record",
			"module", module,
			"code", mutation.Code,
			"message", mutation.Message)
		return nil, ierr.NewError("zoho rejected the record").
			WithHintf("Zoho returned code %s: %s", mutation.Code, mutation.Message).
			Mark(ierr.ErrHTTPClient)
	}

	return &mutation, nil
}
