package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/go-cmp/cmp"
)

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type event struct {
	ID           string `json:"id"`
	DayIndex     int    `json:"dayIndex"`
	StartMinutes int    `json:"startMinutes"`
	EndMinutes   int    `json:"endMinutes"`
	Title        string `json:"title"`
}

type state struct {
	NumDays   int             `json:"numDays"`
	StartDate string          `json:"startDate"`
	StartHour int             `json:"startHour"`
	EndHour   int             `json:"endHour"`
	ViewMode  string          `json:"viewMode"`
	Events    map[int][]event `json:"events"`
}

type snapshot struct {
	State    state `json:"state"`
	Revision int64 `json:"revision"`
}

type client struct {
	http *http.Client
	base string
}

func main() {
	var (
		base    string
		timeout time.Duration
		keep    bool
	)

	flag.StringVar(&base, "base", "http://localhost:8080/api", "API base URL including prefix")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.BoolVar(&keep, "keep", false, "Keep the scratch calendar after the run")
	flag.Parse()

	c := &client{http: &http.Client{Timeout: timeout}, base: strings.TrimRight(base, "/")}
	if err := run(c, keep); err != nil {
		log.Printf("FAIL: %v", err)
		os.Exit(1)
	}
	fmt.Println("PASS: concurrent edits merged")
}

func run(c *client, keep bool) error {
	var created struct {
		ID string `json:"id"`
	}
	if err := c.do(http.MethodPost, "/calendars", map[string]string{"name": "merge smoke " + time.Now().Format(time.RFC3339)}, &created); err != nil {
		return fmt.Errorf("create calendar: %w", err)
	}
	if !keep {
		defer func() {
			if err := c.do(http.MethodDelete, "/calendars/"+created.ID, nil, nil); err != nil {
				log.Printf("cleanup failed: %v", err)
			}
		}()
	}
	path := "/calendars/" + created.ID

	seed := state{
		NumDays: 5, StartDate: time.Now().Format("2006-01-02"), StartHour: 7, EndHour: 22, ViewMode: "row",
		Events: map[int][]event{0: {{ID: "a", DayIndex: 0, StartMinutes: 0, EndMinutes: 60, Title: "shared"}}},
	}
	var base snapshot
	if err := c.do(http.MethodPut, path, map[string]interface{}{"state": seed}, &base); err != nil {
		return fmt.Errorf("seed: %w", err)
	}

	// Client B adds an event on the base it fetched.
	withB := clone(base.State)
	withB.Events[0] = append(withB.Events[0], event{ID: "b", DayIndex: 0, StartMinutes: 120, EndMinutes: 180, Title: "from B"})
	if err := c.do(http.MethodPut, path, map[string]interface{}{"state": withB, "baseState": base.State, "baseRevision": base.Revision}, nil); err != nil {
		return fmt.Errorf("client B save: %w", err)
	}

	// Client A edits "a" on the same, now stale, base.
	withA := clone(base.State)
	withA.Events[0][0].EndMinutes = 90
	var merged snapshot
	if err := c.do(http.MethodPut, path, map[string]interface{}{"state": withA, "baseState": base.State, "baseRevision": base.Revision}, &merged); err != nil {
		return fmt.Errorf("client A save: %w", err)
	}

	want := []event{
		{ID: "a", DayIndex: 0, StartMinutes: 0, EndMinutes: 90, Title: "shared"},
		{ID: "b", DayIndex: 0, StartMinutes: 120, EndMinutes: 180, Title: "from B"},
	}
	if diff := cmp.Diff(want, merged.State.Events[0]); diff != "" {
		return fmt.Errorf("merged events mismatch (-want +got):\n%s", diff)
	}
	if merged.Revision != base.Revision+2 {
		return fmt.Errorf("revision = %d, want %d", merged.Revision, base.Revision+2)
	}
	return nil
}

func clone(s state) state {
	out := s
	out.Events = make(map[int][]event, len(s.Events))
	for day, events := range s.Events {
		out.Events[day] = append([]event(nil), events...)
	}
	return out
}

func (c *client) do(method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, c.base+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	if env.Error != nil {
		return fmt.Errorf("%s %s: %d %s: %s", method, path, resp.StatusCode, env.Error.Code, env.Error.Message)
	}
	if out != nil {
		return json.Unmarshal(env.Data, out)
	}
	return nil
}
