// README: Bench cases: dependency checks, API contract checks, per-user serialization and chat load.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const (
	StatusPass    = "PASS"
	StatusFail    = "FAIL"
	StatusPending = "PENDING"
	StatusSkip    = "SKIP"
)

type Runner struct {
	cfg   Config
	http  *resty.Client
	db    *pgxpool.Pool
	redis *redis.Client
}

type Result struct {
	Name    string
	Status  string
	Latency time.Duration
	Note    string
}

type TestCase struct {
	Name string
	Run  func(ctx context.Context, r *Runner) Result
}

func NewRunner(cfg Config) *Runner {
	return &Runner{
		cfg: cfg,
		http: resty.New().
			SetBaseURL(cfg.BaseURL).
			SetTimeout(30 * time.Second).
			SetHeader("Content-Type", "application/json"),
	}
}

func (r *Runner) RunAll(ctx context.Context) []Result {
	if r.cfg.DSN != "" {
		if db, err := pgxpool.New(ctx, r.cfg.DSN); err == nil {
			r.db = db
			defer db.Close()
		}
	}
	if r.cfg.RedisAddr != "" {
		r.redis = redis.NewClient(&redis.Options{Addr: r.cfg.RedisAddr})
		defer r.redis.Close()
	}

	tests := r.cases()
	results := make([]Result, 0, len(tests))
	for _, tc := range tests {
		res := tc.Run(ctx, r)
		res.Name = tc.Name
		results = append(results, res)
		fmt.Printf("%-7s %s", res.Status, tc.Name)
		if res.Latency > 0 {
			fmt.Printf(" (%s)", res.Latency.Round(time.Millisecond))
		}
		if res.Note != "" {
			fmt.Printf(" - %s", res.Note)
		}
		fmt.Println()
	}
	return results
}

// benchUser returns a fresh user id so reruns never see old conversation state.
func benchUser() string {
	return "bench-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}

func (r *Runner) cases() []TestCase {
	return []TestCase{
		{Name: "Env: Postgres connect", Run: func(ctx context.Context, r *Runner) Result {
			if r.cfg.DSN == "" {
				return Result{Status: StatusSkip, Note: "no dsn; API uses the in-memory ledger"}
			}
			if r.db == nil {
				return Result{Status: StatusFail, Note: "could not open pool"}
			}
			ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			defer cancel()
			if err := r.db.Ping(ctx); err != nil {
				return Result{Status: StatusFail, Note: err.Error()}
			}
			return Result{Status: StatusPass}
		}},
		{Name: "Env: Redis connect", Run: func(ctx context.Context, r *Runner) Result {
			if r.redis == nil {
				return Result{Status: StatusSkip, Note: "no redis; API caches in process"}
			}
			ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			defer cancel()
			if err := r.redis.Ping(ctx).Err(); err != nil {
				return Result{Status: StatusFail, Note: err.Error()}
			}
			return Result{Status: StatusPass}
		}},
		{Name: "Migration: tables exist", Run: checkTables},

		getCase("Health", "/health", http.StatusOK),
		{Name: "Chat: greeting then flight is stored in the plan", Run: chatFlow},
		postCase("Chat: empty message is rejected", "/api/chat",
			map[string]string{"user_id": "bench", "message": " "}, []int{http.StatusBadRequest}, nil),
		getCase("Search: hotels needs a 3-letter code", "/api/hotels/search?city_code=PARIS", http.StatusBadRequest),
		getCase("Search: past departure is rejected",
			"/api/flights/search?origin=BOS&destination=FCO&departure_date=2001-01-01", http.StatusBadRequest),
		{Name: "Search: hotels in PAR", Run: func(ctx context.Context, r *Runner) Result {
			return r.call(ctx, http.MethodGet, "/api/hotels/search?city_code=PAR", nil,
				[]int{http.StatusOK}, []int{http.StatusServiceUnavailable, http.StatusUnauthorized})
		}},
		postCase("Chatbot: enhance without flight or budget", "/api/chatbot/enhance",
			map[string]any{"plan": map[string]any{"hotel": map[string]any{"city_code": "PAR"}}},
			[]int{http.StatusUnprocessableEntity}, nil),
		postCase("Chatbot: enhance budget-only plan", "/api/chatbot/enhance",
			map[string]any{"plan": map[string]any{"budget": map[string]any{"total_budget": 1200, "currency": "EUR"}}},
			[]int{http.StatusOK}, []int{http.StatusServiceUnavailable}),
		postCase("Chatbot: natural language extraction", "/api/chatbot/process-natural-language",
			map[string]string{"user_input": "Fly from Boston to Rome in May for a week"},
			[]int{http.StatusOK}, nil),
		{Name: "Concurrency: one user's turns are serialized", Run: serializedTurns},
		{Name: "Perf: chat turns across users", Run: chatLoad},
	}
}

func getCase(name, path string, want int) TestCase {
	return TestCase{Name: name, Run: func(ctx context.Context, r *Runner) Result {
		return r.call(ctx, http.MethodGet, path, nil, []int{want}, nil)
	}}
}

func postCase(name, path string, body any, ok, pending []int) TestCase {
	return TestCase{Name: name, Run: func(ctx context.Context, r *Runner) Result {
		return r.call(ctx, http.MethodPost, path, body, ok, pending)
	}}
}

func (r *Runner) call(ctx context.Context, method, path string, body any, ok, pending []int) Result {
	req := r.http.R().SetContext(ctx)
	if body != nil {
		req.SetBody(body)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		return Result{Status: StatusFail, Note: err.Error()}
	}
	res := Result{Latency: resp.Time(), Note: fmt.Sprintf("status=%d", resp.StatusCode())}
	switch {
	case contains(ok, resp.StatusCode()):
		res.Status = StatusPass
	case contains(pending, resp.StatusCode()):
		res.Status = StatusPending
	default:
		res.Status = StatusFail
	}
	return res
}

func chatFlow(ctx context.Context, r *Runner) Result {
	user := benchUser()
	start := time.Now()
	for _, msg := range []string{"hello", "book a flight from Boston to Rome"} {
		var out struct {
			Reply string `json:"reply"`
		}
		resp, err := r.http.R().SetContext(ctx).
			SetBody(map[string]string{"user_id": user, "message": msg}).
			SetResult(&out).
			Post("/api/chat")
		if err != nil {
			return Result{Status: StatusFail, Note: err.Error()}
		}
		if resp.StatusCode() != http.StatusOK || out.Reply == "" {
			return Result{Status: StatusFail, Note: fmt.Sprintf("turn %q: status=%d", msg, resp.StatusCode())}
		}
	}

	var plan struct {
		CurrentPlan map[string]any `json:"current_plan"`
	}
	resp, err := r.http.R().SetContext(ctx).SetResult(&plan).Get("/api/chat/" + user + "/plan")
	if err != nil || resp.StatusCode() != http.StatusOK {
		return Result{Status: StatusFail, Note: fmt.Sprintf("plan: %v", err)}
	}
	if _, ok := plan.CurrentPlan["flight"]; !ok {
		return Result{Status: StatusFail, Note: "flight section missing from plan"}
	}
	return Result{Status: StatusPass, Latency: time.Since(start)}
}

func serializedTurns(ctx context.Context, r *Runner) Result {
	user := benchUser()
	var wg sync.WaitGroup
	var failed atomic.Int64
	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := r.http.R().SetContext(ctx).
				SetBody(map[string]string{"user_id": user, "message": "what activities are there in Rome"}).
				Post("/api/chat")
			if err != nil || resp.StatusCode() != http.StatusOK {
				failed.Add(1)
			}
		}()
	}
	wg.Wait()
	if n := failed.Load(); n > 0 {
		return Result{Status: StatusPending, Note: fmt.Sprintf("%d turns rejected (rate limit?)", n)}
	}

	var hist struct {
		Messages []map[string]any `json:"messages"`
	}
	want := 2 * r.cfg.Concurrency
	resp, err := r.http.R().SetContext(ctx).SetResult(&hist).
		Get(fmt.Sprintf("/api/chat/%s/history?limit=%d", user, want+10))
	if err != nil || resp.StatusCode() != http.StatusOK {
		return Result{Status: StatusFail, Note: fmt.Sprintf("history: %v", err)}
	}
	if len(hist.Messages) != want {
		return Result{Status: StatusFail, Note: fmt.Sprintf("history=%d want=%d", len(hist.Messages), want)}
	}
	for i := 0; i+1 < len(hist.Messages); i += 2 {
		if hist.Messages[i]["role"] != "user" || hist.Messages[i+1]["role"] != "assistant" {
			return Result{Status: StatusFail, Note: fmt.Sprintf("turns interleaved at message %d", i)}
		}
	}
	return Result{Status: StatusPass, Note: fmt.Sprintf("turns=%d", r.cfg.Concurrency)}
}

func chatLoad(ctx context.Context, r *Runner) Result {
	end := time.Now().Add(r.cfg.Duration)
	var count, errCount atomic.Int64
	var wg sync.WaitGroup

	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			user := benchUser()
			for time.Now().Before(end) && ctx.Err() == nil {
				resp, err := r.http.R().SetContext(ctx).
					SetHeader("X-User-ID", user).
					SetBody(map[string]string{"user_id": user, "message": "a hotel in Rome (ROM)"}).
					Post("/api/chat")
				if err != nil || resp.StatusCode() != http.StatusOK {
					errCount.Add(1)
					continue
				}
				count.Add(1)
			}
		}()
	}
	wg.Wait()

	if count.Load() == 0 {
		return Result{Status: StatusFail, Note: "no requests completed"}
	}
	rps := float64(count.Load()) / r.cfg.Duration.Seconds()
	return Result{Status: StatusPass, Note: fmt.Sprintf("rps=%.1f errors=%d", rps, errCount.Load())}
}

func checkTables(ctx context.Context, r *Runner) Result {
	if r.db == nil {
		return Result{Status: StatusSkip, Note: "no dsn"}
	}
	tables, err := extractTables(r.cfg.MigrationPath)
	if err != nil {
		return Result{Status: StatusFail, Note: err.Error()}
	}
	for _, t := range tables {
		var exists bool
		if err := r.db.QueryRow(ctx, `SELECT to_regclass($1) IS NOT NULL`, t).Scan(&exists); err != nil {
			return Result{Status: StatusFail, Note: err.Error()}
		}
		if !exists {
			return Result{Status: StatusFail, Note: "missing table " + t}
		}
	}
	return Result{Status: StatusPass, Note: strings.Join(tables, ",")}
}

func contains(list []int, v int) bool {
	for _, i := range list {
		if i == v {
			return true
		}
	}
	return false
}

var createTableRe = regexp.MustCompile(`(?i)CREATE\s+TABLE\s+(?:IF\s+NOT\s+EXISTS\s+)?([a-zA-Z0-9_."]+)`)

func extractTables(path string) ([]string, error) {
	sql, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, m := range createTableRe.FindAllStringSubmatch(string(sql), -1) {
		out = append(out, strings.Trim(m[1], `"`))
	}
	return out, nil
}
