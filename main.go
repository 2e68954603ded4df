package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/percona/percona-linkstack/bench"
	"github.com/percona/percona-linkstack/config"
	"github.com/percona/percona-linkstack/errors"
	"github.com/percona/percona-linkstack/list"
	"github.com/percona/percona-linkstack/log"
	"github.com/percona/percona-linkstack/metrics"
)

func main() {
	var (
		logLevelFlag string
		logJSON      bool
		logNoColor   bool

		port string
	)

	rootCmd := &cobra.Command{
		Use:   "linkstack",
		Short: "Percona linked stack exerciser",
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			logLevel, err := zerolog.ParseLevel(logLevelFlag)
			if err != nil {
				log.InitGlobals(0, logJSON, true).Fatal().Msg("Unknown log level")
			}

			lg := log.InitGlobals(logLevel, logJSON, logNoColor)
			ctx := lg.WithContext(context.Background())
			cmd.SetContext(ctx)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Check if this is the root command being executed without a subcommand
			if cmd.CalledAs() != "linkstack" || cmd.ArgsLenAtDash() != -1 {
				return nil
			}

			return runServer(cmd.Context(), port)
		},
	}

	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "info", "Log level")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "Output log in JSON format")
	rootCmd.PersistentFlags().BoolVar(&logNoColor, "no-color", false, "Disable log color")
	rootCmd.PersistentFlags().StringVar(&port, "port", config.DefaultServerPort, "Port number")

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Get the report of the last bench run",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return NewClient(port).Status(cmd.Context())
		},
	}

	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "Run a bench on the server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			size, err := cmd.Flags().GetInt("size")
			if err != nil {
				return err //nolint:wrapcheck
			}

			lists, err := cmd.Flags().GetInt("lists")
			if err != nil {
				return err //nolint:wrapcheck
			}

			timeout, err := cmd.Flags().GetDuration("timeout")
			if err != nil {
				return err //nolint:wrapcheck
			}

			req := benchRequest{
				Size:    size,
				Lists:   lists,
				Timeout: timeout.String(),
			}

			return NewClient(port).Bench(cmd.Context(), req)
		},
	}

	benchCmd.Flags().Int("size", config.BenchSize(), "Elements pushed onto each list")
	benchCmd.Flags().Int("lists", config.DefaultBenchLists, "Number of lists exercised in parallel")
	benchCmd.Flags().Duration("timeout", config.DefaultBenchTimeout, "Bench run timeout")

	demoCmd := &cobra.Command{
		Use:   "demo",
		Short: "Run the push/pop walkthrough locally",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDemo(cmd.Context(), cmd.OutOrStdout())
		},
	}

	rootCmd.AddCommand(statusCmd, benchCmd, demoCmd)

	err := rootCmd.Execute()
	if err != nil {
		zerolog.Ctx(context.Background()).Fatal().Err(err).Msg("")
	}
}

// runDemo walks a small list through every operation and prints each result.
func runDemo(ctx context.Context, w io.Writer) error {
	lg := log.Ctx(ctx).With(log.Scope("demo"))

	l := list.New[int]()

	show := func(op string, val int, ok bool) {
		if ok {
			fmt.Fprintf(w, "%-10s -> %d\n", op, val)
		} else {
			fmt.Fprintf(w, "%-10s -> none\n", op)
		}
	}

	for _, v := range []int{1, 2, 3} {
		l.Push(v)
		fmt.Fprintf(w, "push(%d)\n", v)
	}

	val, ok := l.Peek()
	show("peek()", val, ok)

	fmt.Fprint(w, "iter()    ->")
	for v := range l.All() {
		fmt.Fprintf(w, " %d", v)
	}
	fmt.Fprintln(w)

	for p := range l.Mutable() {
		*p *= 10
	}
	lg.Debug("multiplied every element by 10")

	val, ok = l.Pop()
	show("pop()", val, ok)
	val, ok = l.Pop()
	show("pop()", val, ok)

	l.Push(4)
	fmt.Fprintln(w, "push(4)")

	it := l.IntoIter()
	for val, ok := it.Next(); ok; val, ok = it.Next() {
		show("next()", val, ok)
	}

	val, ok = l.Pop()
	show("pop()", val, ok)

	lg.Info("demo completed")

	return nil
}

// runServer starts the HTTP server with the provided configuration.
func runServer(ctx context.Context, port string) error {
	addr, err := buildServerAddr(port)
	if err != nil {
		return errors.Wrap(err, "build server address")
	}

	reg := prometheus.NewRegistry()
	metrics.Init(reg)

	srv := &server{registry: reg}

	httpServer := http.Server{
		Addr:    addr,
		Handler: srv.Handler(),

		ReadTimeout:       config.ServerReadTimeout,
		ReadHeaderTimeout: config.ServerReadHeaderTimeout,
	}

	log.Ctx(ctx).Info("Starting server at http://" + addr)

	err = httpServer.ListenAndServe()
	if err != nil {
		return errors.Wrap(err, "listen")
	}

	return nil
}

var errUnsupportedPortRange = errors.New("port value is outside the supported range [1024 - 65535]")

// buildServerAddr constructs the server address from the port.
func buildServerAddr(port string) (string, error) {
	i, err := strconv.ParseInt(port, 10, 32)
	if err != nil {
		return "", errors.Wrap(err, "invalid port value format")
	}

	if i < 1024 || i > 65535 {
		return "", errUnsupportedPortRange
	}

	return "localhost:" + port, nil
}

var errBenchInProgress = errors.New("bench already in progress")

// server runs bench requests and keeps the last report.
type server struct {
	// registry holds the metrics served at /metrics.
	registry *prometheus.Registry

	// running guards against concurrent bench runs.
	running sync.Mutex

	mu   sync.Mutex
	last *bench.Report
	err  error
}

// Handler returns the HTTP handler for the server.
func (s *server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/bench", s.handleBench)
	mux.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.New("http").Info(r.Method + " " + r.URL.String())
		mux.ServeHTTP(w, r)
	})
}

// handleStatus handles the /status endpoint.
func (s *server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w,
			http.StatusText(http.StatusMethodNotAllowed),
			http.StatusMethodNotAllowed)

		return
	}

	s.mu.Lock()
	last, lastErr := s.last, s.err
	s.mu.Unlock()

	res := statusResponse{Ok: lastErr == nil}
	if lastErr != nil {
		res.Err = lastErr.Error()
	}

	if last != nil {
		res.Report = newReportResponse(last)
	}

	writeResponse(w, res)
}

// handleBench handles the /bench endpoint.
func (s *server) handleBench(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w,
			http.StatusText(http.StatusMethodNotAllowed),
			http.StatusMethodNotAllowed)

		return
	}

	if r.ContentLength > config.MaxRequestSize {
		http.Error(w,
			http.StatusText(http.StatusRequestEntityTooLarge),
			http.StatusRequestEntityTooLarge)

		return
	}

	params := benchRequest{
		Size:  config.BenchSize(),
		Lists: config.DefaultBenchLists,
	}

	if r.ContentLength != 0 {
		data, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w,
				http.StatusText(http.StatusInternalServerError),
				http.StatusInternalServerError)

			return
		}

		err = json.Unmarshal(data, &params)
		if err != nil {
			http.Error(w,
				http.StatusText(http.StatusBadRequest),
				http.StatusBadRequest)

			return
		}
	}

	options, err := params.options()
	if err != nil {
		writeResponse(w, benchResponse{Err: err.Error()})

		return
	}

	if !s.running.TryLock() {
		writeResponse(w, benchResponse{Err: errBenchInProgress.Error()})

		return
	}
	defer s.running.Unlock()

	rep, err := bench.Run(r.Context(), options)

	s.mu.Lock()
	s.last, s.err = rep, err
	s.mu.Unlock()

	if err != nil {
		writeResponse(w, benchResponse{Err: err.Error()})

		return
	}

	writeResponse(w, benchResponse{Ok: true, Report: newReportResponse(rep)})
}

// writeResponse writes the response as JSON to the ResponseWriter.
func writeResponse[T any](w http.ResponseWriter, resp T) {
	err := json.NewEncoder(w).Encode(resp)
	if err != nil {
		http.Error(w,
			http.StatusText(http.StatusInternalServerError),
			http.StatusInternalServerError)
	}
}

// benchRequest represents the request body for the /bench endpoint.
type benchRequest struct {
	// Size is the number of elements pushed onto each list.
	Size int `json:"size,omitempty"`
	// Lists is the number of lists exercised in parallel.
	Lists int `json:"lists,omitempty"`
	// Timeout bounds the run, in [time.ParseDuration] format.
	Timeout string `json:"timeout,omitempty"`
}

func (r benchRequest) options() (bench.Options, error) {
	options := bench.Options{
		Size:    r.Size,
		Lists:   r.Lists,
		Timeout: config.DefaultBenchTimeout,
	}

	if r.Timeout != "" {
		timeout, err := time.ParseDuration(r.Timeout)
		if err != nil {
			return options, errors.Wrap(err, "invalid timeout")
		}

		options.Timeout = timeout
	}

	return options, options.Validate()
}

// benchResponse represents the response body for the /bench endpoint.
type benchResponse struct {
	// Ok indicates if the operation was successful.
	Ok bool `json:"ok"`
	// Err is the error message if the operation failed.
	Err string `json:"error,omitempty"`

	// Report is the result of the run.
	Report *reportResponse `json:"report,omitempty"`
}

// statusResponse represents the response body for the /status endpoint.
type statusResponse struct {
	// Ok is false if the last run failed.
	Ok bool `json:"ok"`
	// Err is the error message of the last run.
	Err string `json:"error,omitempty"`

	// Report is the result of the last successful run.
	Report *reportResponse `json:"report,omitempty"`
}

// reportResponse is the JSON form of [bench.Report].
type reportResponse struct {
	Size     int   `json:"size"`
	Lists    int   `json:"lists"`
	Elements int   `json:"elements"`
	Duration int64 `json:"durationMs"`

	// Phases maps a phase name to its summed duration across lists in microseconds.
	Phases map[string]int64 `json:"phasesUs"`

	Summary string `json:"summary"`
}

func newReportResponse(rep *bench.Report) *reportResponse {
	res := &reportResponse{
		Size:     rep.Size,
		Lists:    rep.Lists,
		Elements: rep.Elements,
		Duration: rep.Duration.Milliseconds(),
		Phases:   make(map[string]int64, len(rep.Phases)),
		Summary:  rep.String(),
	}

	for phase, dur := range rep.Phases {
		res.Phases[string(phase)] = dur.Microseconds()
	}

	return res
}

type LinkStackClient struct {
	port string
}

func NewClient(port string) LinkStackClient {
	return LinkStackClient{port: port}
}

// Status sends a request to get the last bench report.
func (c LinkStackClient) Status(ctx context.Context) error {
	return doClientRequest[statusResponse](ctx, c.port, http.MethodGet, "status", nil)
}

// Bench sends a request to run a bench.
func (c LinkStackClient) Bench(ctx context.Context, req benchRequest) error {
	return doClientRequest[benchResponse](ctx, c.port, http.MethodPost, "bench", req)
}

func doClientRequest[T any](ctx context.Context, port, method, path string, options any) error {
	url := fmt.Sprintf("http://localhost:%s/%s", port, path)

	data := []byte("")
	if options != nil {
		var err error
		data, err = json.Marshal(options)
		if err != nil {
			return errors.Wrap(err, "encode request")
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(data))
	if err != nil {
		return errors.Wrap(err, "build request")
	}

	log.Ctx(ctx).Debugf("%s /%s %s", method, path, string(data))

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "request")
	}
	defer res.Body.Close()

	var resp T

	err = json.NewDecoder(res.Body).Decode(&resp)
	if err != nil {
		return errors.Wrap(err, "decode response")
	}

	j := json.NewEncoder(os.Stdout)
	j.SetIndent("", "  ")
	err = j.Encode(resp)

	return errors.Wrap(err, "print response")
}
