package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Shayennn/ptm-noti/internal/config"
	"github.com/Shayennn/ptm-noti/internal/domain/ticket"
	"github.com/Shayennn/ptm-noti/internal/utils"
)

var (
	// ErrTransport marks a non-200 HTTP response from any endpoint.
	ErrTransport = errors.New("unexpected http status")
	// ErrAPI marks a 200 response whose decoded payload carries a
	// non-success application status.
	ErrAPI = errors.New("api error")
)

// noTicketsMessage is the application-level message the allTickets
// endpoint returns when the lookback window is empty. It arrives with
// a non-success status code but is not an error.
const noTicketsMessage = "Not found Ticket"

const successStatus = "000"

// Client talks to the five PTM endpoints. All requests carry the fixed
// header set (reqBy, reqDtm, reqID, src) and every response is a JSON
// envelope whose "value" field holds a JSON-encoded string payload.
type Client struct {
	cfg  *config.Config
	http *http.Client
	log  zerolog.Logger
}

func NewClient(cfg *config.Config, log zerolog.Logger) *Client {
	return &Client{
		cfg: cfg,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log,
	}
}

// AuthResult is the token triple from the authenticate and refresh
// endpoints.
type AuthResult struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int
}

type envelope struct {
	Value string `json:"value"`
}

type authPayload struct {
	Status       string `json:"status"`
	MsgEn        string `json:"msgEn"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int    `json:"expiresIn"`
}

type ticketsPayload struct {
	Status  string           `json:"status"`
	MsgEn   string           `json:"msgEn"`
	Tickets []ticket.Summary `json:"tickets"`
}

type detailPayload struct {
	Status       string        `json:"status"`
	MsgEn        string        `json:"msgEn"`
	TicketDetail ticket.Detail `json:"ticketDetail"`
}

type evidencePayload struct {
	Status string `json:"status"`
	MsgEn  string `json:"msgEn"`
	ticket.Evidence
}

// Authenticate exchanges the citizen credentials for a token triple.
// The client id/secret ride along as transport-level basic auth.
func (c *Client) Authenticate(ctx context.Context) (AuthResult, error) {
	body := map[string]string{
		"citizen":    c.cfg.Citizen,
		"password":   c.cfg.Password,
		"grant_type": "password",
		"reqDtm":     utils.ReqDtm(time.Now()),
	}

	req, err := c.newRequest(ctx, c.cfg.Endpoints.Auth, body)
	if err != nil {
		return AuthResult{}, err
	}
	req.SetBasicAuth(c.cfg.Client.ID, c.cfg.Client.Secret)

	var payload authPayload
	if err := c.do(req, "authenticate", &payload); err != nil {
		return AuthResult{}, err
	}
	if payload.AccessToken == "" {
		return AuthResult{}, fmt.Errorf("%w: no access token in authenticate response", ErrAPI)
	}
	return AuthResult{
		AccessToken:  payload.AccessToken,
		RefreshToken: payload.RefreshToken,
		ExpiresIn:    payload.ExpiresIn,
	}, nil
}

// Refresh exchanges the refresh token for a new token triple, using
// the current access token as bearer auth. Any non-200 response,
// non-success status, or missing access token is an error; the caller
// decides whether to fall back to a full authenticate.
func (c *Client) Refresh(ctx context.Context, accessToken, refreshToken string) (AuthResult, error) {
	body := map[string]string{
		"grant_type":    "refresh_token",
		"refresh_token": refreshToken,
		"reqDtm":        utils.ReqDtm(time.Now()),
		"citizen":       c.cfg.Citizen,
	}

	req, err := c.newRequest(ctx, c.cfg.Endpoints.Refresh, body)
	if err != nil {
		return AuthResult{}, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	var payload authPayload
	if err := c.do(req, "refresh", &payload); err != nil {
		return AuthResult{}, err
	}
	if payload.Status != successStatus {
		return AuthResult{}, fmt.Errorf("%w: refresh returned status %s", ErrAPI, payload.Status)
	}
	if payload.AccessToken == "" {
		return AuthResult{}, fmt.Errorf("%w: no access token in refresh response", ErrAPI)
	}
	return AuthResult{
		AccessToken:  payload.AccessToken,
		RefreshToken: payload.RefreshToken,
		ExpiresIn:    payload.ExpiresIn,
	}, nil
}

// AllTickets lists tickets in a fixed one-year lookback window ending
// today. An empty window is reported by the API as an error status
// with a "Not found Ticket" message and is returned as an empty slice.
func (c *Client) AllTickets(ctx context.Context, accessToken string) ([]ticket.Summary, error) {
	now := time.Now()
	body := map[string]string{
		"fromDate":   utils.FormatDateDMY(now.AddDate(-1, 0, 0)),
		"toDate":     utils.FormatDateDMY(now),
		"reqDtm":     utils.ReqDtm(now),
		"citizen":    c.cfg.Citizen,
		"paidStatus": "",
	}

	req, err := c.newRequest(ctx, c.cfg.Endpoints.AllTickets, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	var payload ticketsPayload
	if err := c.do(req, "allTickets", &payload); err != nil {
		return nil, err
	}
	if payload.MsgEn == noTicketsMessage {
		return nil, nil
	}
	if payload.Status != successStatus {
		c.log.Error().Str("msgEn", payload.MsgEn).Msg("allTickets error")
		return nil, fmt.Errorf("%w: allTickets: %s", ErrAPI, payload.MsgEn)
	}
	return payload.Tickets, nil
}

// TicketDetail fetches the full record for one ticket.
func (c *Client) TicketDetail(ctx context.Context, accessToken, ticketNo string) (ticket.Detail, error) {
	body := map[string]string{
		"ticketNo": ticketNo,
		"reqDtm":   utils.ReqDtm(time.Now()),
	}

	req, err := c.newRequest(ctx, c.cfg.Endpoints.TicketDetail, body)
	if err != nil {
		return ticket.Detail{}, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	var payload detailPayload
	if err := c.do(req, "ticketDetail", &payload); err != nil {
		return ticket.Detail{}, err
	}
	if payload.Status != successStatus {
		c.log.Error().Str("msgEn", payload.MsgEn).Str("ticket_no", ticketNo).Msg("ticketDetail error")
		return ticket.Detail{}, fmt.Errorf("%w: ticketDetail: %s", ErrAPI, payload.MsgEn)
	}
	return payload.TicketDetail, nil
}

// ImageEvidence fetches the base64 evidence images for one ticket.
func (c *Client) ImageEvidence(ctx context.Context, accessToken, ticketNo string) (ticket.Evidence, error) {
	body := map[string]string{
		"citizen":  c.cfg.Citizen,
		"ticketNo": ticketNo,
		"reqDtm":   utils.ReqDtm(time.Now()),
	}

	req, err := c.newRequest(ctx, c.cfg.Endpoints.ImageEvidence, body)
	if err != nil {
		return ticket.Evidence{}, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	var payload evidencePayload
	if err := c.do(req, "imageevidence", &payload); err != nil {
		return ticket.Evidence{}, err
	}
	if payload.Status != successStatus {
		c.log.Error().Str("msgEn", payload.MsgEn).Str("ticket_no", ticketNo).Msg("imageevidence error")
		return ticket.Evidence{}, fmt.Errorf("%w: imageevidence: %s", ErrAPI, payload.MsgEn)
	}
	return payload.Evidence, nil
}

func (c *Client) newRequest(ctx context.Context, url string, body any) (*http.Request, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("reqBy", "ETICKET")
	req.Header.Set("reqDtm", utils.ReqDtm(time.Now()))
	req.Header.Set("reqID", uuid.NewString())
	req.Header.Set("src", "ETICKET")
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

// do executes the request and decodes the double-encoded envelope into
// out. Non-200 responses become ErrTransport.
func (c *Client) do(req *http.Request, endpoint string, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.log.Error().Int("status", resp.StatusCode).Str("endpoint", endpoint).Msg("request failed")
		return fmt.Errorf("%w: %s returned %d", ErrTransport, endpoint, resp.StatusCode)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("failed to decode %s envelope: %w", endpoint, err)
	}
	if err := json.Unmarshal([]byte(env.Value), out); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", endpoint, err)
	}
	return nil
}
