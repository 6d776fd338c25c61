// Package berlinzms interroge le système de rendez-vous (ZMS) de service.berlin.de.
package berlinzms

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/Guilhem-Bonnet/termin-watch/internal/domain"
)

const DefaultBaseURL = "https://service.berlin.de"

// maxPageSize borne la lecture d'une page; au-delà la page est refusée.
const maxPageSize = 8 << 20

// Europe/Berlin: les pages "day" sont indexées sur minuit heure locale.
var berlin = mustLoadLocation("Europe/Berlin")

type Options struct {
	BaseURL  string
	Email    string
	ScriptID string
	Timeout  time.Duration

	// Now est injectable pour les tests (calcul du mois suivant).
	Now func() time.Time
}

type Client struct {
	http *http.Client
	opts Options
}

func New(opts Options) *Client {
	if strings.TrimSpace(opts.BaseURL) == "" {
		opts.BaseURL = DefaultBaseURL
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if opts.Timeout <= 0 {
		opts.Timeout = 20 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Client{http: &http.Client{Timeout: opts.Timeout}, opts: opts}
}

// AppointmentsURL est la cible "termin/all" d'un service.
func (c *Client) AppointmentsURL(serviceID string) string {
	return fmt.Sprintf("%s/terminvereinbarung/termin/all/%s/", c.opts.BaseURL, serviceID)
}

// NextMonthURL est la page "day" du 1er du mois calendaire suivant.
func (c *Client) NextMonthURL(now time.Time) string {
	return fmt.Sprintf("%s/terminvereinbarung/termin/day/%d/", c.opts.BaseURL, FirstOfNextMonth(now).Unix())
}

func FirstOfNextMonth(now time.Time) time.Time {
	local := now.In(berlin)
	return time.Date(local.Year(), local.Month()+1, 1, 0, 0, 0, 0, berlin)
}

// Fetch lit le mois courant (fetchTarget) puis le mois suivant et renvoie l'union triée.
//
// La page du mois suivant dépend de la session (cookie) ouverte par la première
// requête côté ZMS. Chaque Fetch a son propre cookie jar: le client est partagé
// par tous les watchers et leurs sessions ne doivent pas se mélanger.
func (c *Client) Fetch(ctx context.Context, fetchTarget string) (domain.SlotSet, error) {
	if strings.TrimSpace(fetchTarget) == "" {
		return nil, &FetchError{Code: CodeInvalidTarget, Message: "empty fetch target"}
	}

	session, err := c.session()
	if err != nil {
		return nil, err
	}

	page1, err := c.get(ctx, session, fetchTarget)
	if err != nil {
		return nil, err
	}
	slots1, err := ParseAppointmentDates(page1)
	if err != nil {
		return nil, err
	}

	page2, err := c.get(ctx, session, c.NextMonthURL(c.opts.Now()))
	if err != nil {
		return nil, err
	}
	slots2, err := ParseAppointmentDates(page2)
	if err != nil {
		return nil, err
	}

	return domain.Union(slots1, slots2), nil
}

// session renvoie une copie du client avec un cookie jar neuf.
func (c *Client) session() (*http.Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, &FetchError{Code: CodeNetwork, Message: "cookie jar", Err: err}
	}
	hc := *c.http
	hc.Jar = jar
	return &hc, nil
}

func (c *Client) get(ctx context.Context, hc *http.Client, url string) (io.Reader, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{Code: CodeInvalidTarget, Message: "build request", Err: err}
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")
	if c.opts.Email != "" {
		req.Header.Set("X-Email", c.opts.Email)
	}
	if c.opts.ScriptID != "" {
		req.Header.Set("X-Script-Id", c.opts.ScriptID)
	}

	resp, err := hc.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return nil, &FetchError{Code: CodeTimeout, Message: "request timed out", Err: err}
		}
		return nil, &FetchError{Code: CodeNetwork, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, &FetchError{Code: CodeHTTPStatus, Message: fmt.Sprintf("%s returned %s", url, resp.Status)}
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxPageSize+1))
	if err != nil {
		if isTimeout(err) {
			return nil, &FetchError{Code: CodeTimeout, Message: "reading body timed out", Err: err}
		}
		return nil, &FetchError{Code: CodeNetwork, Message: "read body", Err: err}
	}
	if len(b) > maxPageSize {
		return nil, &FetchError{Code: CodeParse, Message: fmt.Sprintf("%s: page larger than %d bytes", url, maxPageSize)}
	}
	return bytes.NewReader(b), nil
}

func isTimeout(err error) bool {
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}

func parseUnix(s string) (time.Time, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(n, 0).UTC(), nil
}

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}
