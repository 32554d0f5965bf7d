package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-multierror"

	"github.com/ardnew/weft/engine"
	"github.com/ardnew/weft/eval"
	"github.com/ardnew/weft/lang"
	"github.com/ardnew/weft/library"
	"github.com/ardnew/weft/log"
	"github.com/ardnew/weft/profile"
	"github.com/ardnew/weft/render"
)

// Serve renders templates over HTTP.
//
//	GET /render/NAME   stream of {"data","eof"} JSON lines, one per flush
//	GET /page/NAME     the whole document as text/html
//	GET /ast/NAME      the parsed template as JSON
//	GET /templates     the names of every template
//
// Query parameters are layered over the --data scope of each render.
type Serve struct {
	Addr     string        `default:"localhost:8080" help:"Listen address"                            validate:"required,hostname_port"`
	Mode     string        `default:"release"        enum:"debug,release,test"                       help:"Router mode" validate:"oneof=debug release test"`
	Shutdown time.Duration `default:"5s"             help:"Grace period for in-flight requests"      validate:"gte=0"`
	Watch    bool          `help:"Reload templates when their files change"`
}

// Run executes the serve command.
func (s *Serve) Run(ctx context.Context, g *Globals) (err error) {
	if err := s.validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	lib := g.library()

	eng, closeStore, err := g.engine(ctx, lib)
	if err != nil {
		return err
	}

	defer func() {
		if cerr := closeStore(); err == nil {
			err = cerr
		}
	}()

	layers, err := g.layers()
	if err != nil {
		return err
	}

	if s.Watch {
		go func() {
			if err := lib.Watch(ctx); err != nil {
				log.WarnContext(ctx, "template watch stopped", slog.Any("error", err))
			}
		}()
	}

	srv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.router(lib, eng, layers),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)

	go func() { errc <- srv.ListenAndServe() }()

	log.InfoContext(ctx, "serving",
		slog.String("addr", s.Addr),
		slog.Any("dirs", lib.Dirs()),
	)

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return ErrServe.Wrap(err).With(slog.String("addr", s.Addr))

	case <-ctx.Done():
	}

	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.Shutdown)
	defer cancel()

	log.InfoContext(ctx, "shutting down", slog.Duration("grace", s.Shutdown))

	return srv.Shutdown(sctx)
}

// validate checks the settings, reporting every invalid field.
func (s *Serve) validate() error {
	err := validator.New(validator.WithRequiredStructEnabled()).Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return ErrSettings.Wrap(err)
	}

	var result *multierror.Error

	for _, fe := range verrs {
		result = multierror.Append(result, fmt.Errorf("%s: %q fails %s",
			strings.ToLower(fe.Field()), fmt.Sprint(fe.Value()), fe.Tag()))
	}

	return ErrSettings.Wrap(result.ErrorOrNil())
}

func (s *Serve) router(lib *library.Library, eng *engine.Engine, layers []any) *gin.Engine {
	gin.SetMode(s.Mode)

	r := gin.New()
	r.Use(requestLogger(), gin.Recovery())

	if len(profile.Modes()) > 0 {
		r.Any("/debug/pprof/*profile", gin.WrapH(http.DefaultServeMux))
	}

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	r.GET("/templates", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"templates": lib.Names()})
	})

	r.GET("/ast/*name", func(c *gin.Context) {
		tpl, err := lib.Lookup(c.Request.Context(), templateName(c))
		if err != nil {
			fail(c, err)

			return
		}

		c.Header("Content-Type", "application/json; charset=utf-8")
		c.Status(http.StatusOK)

		if err := lang.FormatJSON(c.Request.Context(), c.Writer, tpl, 0); err != nil {
			_ = c.Error(err)
		}
	})

	r.GET("/page/*name", func(c *gin.Context) {
		page, err := eng.RenderString(c.Request.Context(), templateName(c), withQuery(c, layers)...)
		if err != nil {
			fail(c, err)

			return
		}

		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(page))
	})

	r.GET("/render/*name", func(c *gin.Context) {
		var started bool

		enc := json.NewEncoder(c.Writer)
		enc.SetEscapeHTML(false)

		err := eng.RenderStream(c.Request.Context(), templateName(c),
			func(ch render.Chunk) error {
				if !started {
					c.Header("Content-Type", "application/x-ndjson")
					c.Status(http.StatusOK)

					started = true
				}

				if err := enc.Encode(ch); err != nil {
					return err
				}

				c.Writer.Flush()

				return nil
			}, withQuery(c, layers)...)
		if err == nil {
			return
		}

		if !started {
			fail(c, err)

			return
		}

		// Headers are gone; report the failure in-band.
		_ = enc.Encode(gin.H{"error": err.Error()})
		_ = c.Error(err)
	})

	return r
}

// templateName returns the template named by the wildcard route segment.
func templateName(c *gin.Context) string {
	return strings.TrimSuffix(strings.TrimPrefix(c.Param("name"), "/"), "/")
}

// withQuery layers the request's query parameters over layers.
func withQuery(c *gin.Context, layers []any) []any {
	query := c.Request.URL.Query()
	if len(query) == 0 {
		return layers
	}

	top := make(map[string]any, len(query))
	for key := range query {
		top[key] = query.Get(key)
	}

	return append(append([]any(nil), layers...), top)
}

// fail writes err as a JSON error response.
func fail(c *gin.Context, err error) {
	c.AbortWithStatusJSON(statusOf(err), gin.H{"error": err.Error()})
}

func statusOf(err error) int {
	var pe *lang.ParseError

	switch {
	case errors.Is(err, eval.ErrMissingTemplate):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.As(err, &pe):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// requestLogger logs each request through the default logger.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		attrs := []slog.Attr{
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", c.Writer.Status()),
			slog.String("client", c.ClientIP()),
			slog.Duration("elapsed", time.Since(start)),
		}

		if len(c.Errors) > 0 {
			attrs = append(attrs, slog.String("error", c.Errors.String()))
		}

		log.DebugContext(c.Request.Context(), "request", attrs...)
	}
}
