package notify

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	PhoneLength   = 8
	MaxSMSLength  = 1600
	twilioBaseURL = "https://api.twilio.com"
)

// SMS sends alerts through a Twilio-compatible Messages API.
type SMS struct {
	AccountSID    string
	AuthToken     string
	FromPhone     string
	CountryPrefix string
	BaseURL       string
	Client        *http.Client
}

func NewSMS(accountSID, authToken, fromPhone, countryPrefix string) *SMS {
	if accountSID == "" || authToken == "" || fromPhone == "" {
		return nil
	}
	return &SMS{
		AccountSID:    accountSID,
		AuthToken:     authToken,
		FromPhone:     fromPhone,
		CountryPrefix: countryPrefix,
		BaseURL:       twilioBaseURL,
		Client:        &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *SMS) Send(ctx context.Context, owner, message string) error {
	phone := strings.TrimSpace(owner)
	msg := strings.TrimSpace(message)
	if len(phone) != PhoneLength || msg == "" || len(msg) > MaxSMSLength {
		return ErrInvalidInput
	}

	form := url.Values{}
	form.Set("From", s.FromPhone)
	form.Set("To", s.CountryPrefix+phone)
	form.Set("Body", msg)

	endpoint := strings.TrimSuffix(s.BaseURL, "/") +
		"/2010-04-01/Accounts/" + url.PathEscape(s.AccountSID) + "/Messages.json"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return &TransportError{Err: err}
	}
	req.SetBasicAuth(s.AccountSID, s.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.Client.Do(req)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return &RejectedError{StatusCode: resp.StatusCode}
	}
	return nil
}
