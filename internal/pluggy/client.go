// Package pluggy provides a client for the Pluggy aggregation API to fetch
// accounts and transactions for a connected item.
package pluggy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const DefaultAPIURL = "https://api.pluggy.ai"

// Transactions endpoint is paginated; we request the maximum page size and
// report totalPages to callers so they can reject multi-page results.
const pageSize = 300

type Client struct {
	apiURL       string
	clientID     string
	clientSecret string
	apiKey       string
	httpClient   *http.Client
}

func NewClient(clientID, clientSecret string) *Client {
	return NewClientWithURL(DefaultAPIURL, clientID, clientSecret)
}

func NewClientWithURL(apiURL, clientID, clientSecret string) *Client {
	return &Client{
		apiURL:       strings.TrimSuffix(apiURL, "/"),
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) FetchAccounts(itemID string) (*AccountsResponse, error) {
	var result AccountsResponse

	err := c.get("/accounts", url.Values{"itemId": {itemID}}, &result)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch accounts for item %s: %w", itemID, err)
	}

	return &result, nil
}

func (c *Client) FetchTransactions(accountID string, from, to time.Time) (*TransactionsResponse, error) {
	query := url.Values{
		"accountId": {accountID},
		"from":      {from.Format("2006-01-02")},
		"to":        {to.Format("2006-01-02")},
		"pageSize":  {strconv.Itoa(pageSize)},
	}

	var result TransactionsResponse

	err := c.get("/transactions", query, &result)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transactions for account %s: %w", accountID, err)
	}

	return &result, nil
}

func (c *Client) get(path string, query url.Values, result interface{}) error {
	err := c.ensureAPIKey()
	if err != nil {
		return err
	}

	req, err := http.NewRequest("GET", c.apiURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("X-API-KEY", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API error: %s", resp.Status)
	}

	return json.NewDecoder(resp.Body).Decode(result)
}

// ensureAPIKey exchanges the client credentials for an API key on first use.
func (c *Client) ensureAPIKey() error {
	if c.apiKey != "" {
		return nil
	}

	body, err := json.Marshal(map[string]string{
		"clientId":     c.clientID,
		"clientSecret": c.clientSecret,
	})
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Post(c.apiURL+"/auth", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("authentication request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("authentication failed: %s", resp.Status)
	}

	var auth struct {
		APIKey string `json:"apiKey"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&auth); err != nil {
		return fmt.Errorf("failed to decode auth response: %w", err)
	}

	if auth.APIKey == "" {
		return fmt.Errorf("authentication response contained no api key")
	}

	c.apiKey = auth.APIKey

	return nil
}

// TransferParts splits the bank routing metadata into its routing, branch and
// account components, with check digits stripped.
func (a Account) TransferParts() (fid int, branch, number string, ok bool) {
	if a.BankData == nil || a.BankData.TransferNumber == "" {
		return 0, "", "", false
	}

	parts := strings.Split(a.BankData.TransferNumber, "/")
	if len(parts) != 3 {
		return 0, "", "", false
	}

	fid, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, "", "", false
	}

	branch = strings.ReplaceAll(parts[1], "-", "")
	number = strings.ReplaceAll(parts[2], "-", "")

	return fid, branch, number, true
}
