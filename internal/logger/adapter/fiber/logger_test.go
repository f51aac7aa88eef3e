package fiber_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ExtMailer/ExtMailer/internal/logger"
	adapter "github.com/ExtMailer/ExtMailer/internal/logger/adapter/fiber"
)

type accessEntry struct {
	IP     string `json:"IP"`
	Status int    `json:"status"`
	URI    string `json:"URI"`
	Method string `json:"method"`
	Host   string `json:"host"`
	User   uint64 `json:"user"`
}

func consoleConfig() adapter.Config {
	return adapter.Config{
		Config: logger.Log{
			EnableAccessLogToConsole: true,
			DisableCheckAlive:        true,
			Console:                  logger.Console{Enabled: true},
		},
		CheckAliveURI: "/checkalive",
		SkipPrefixes:  []string{"/static"},
		UserLocal:     "uid",
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name   string
		config adapter.Config
		target string
		want   *accessEntry
	}{
		{
			name:   "no writers no output",
			config: adapter.ConfigDefault,
			target: "/",
		},
		{
			name:   "get root",
			config: consoleConfig(),
			target: "/",
			want:   &accessEntry{IP: "0.0.0.0", Status: fiber.StatusOK, URI: "/", Method: fiber.MethodGet, Host: "example.com", User: 7},
		},
		{
			name:   "unnormalized path with query is logged as sent",
			config: consoleConfig(),
			target: "/configure//x?tab=mail",
			want:   &accessEntry{IP: "0.0.0.0", Status: fiber.StatusNotFound, URI: "/configure//x?tab=mail", Method: fiber.MethodGet, Host: "example.com"},
		},
		{
			name:   "checkalive skipped",
			config: consoleConfig(),
			target: "/checkalive",
		},
		{
			name:   "static skipped",
			config: consoleConfig(),
			target: "/static/css/app.css",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := serve(t, tt.target, tt.config)

			if tt.want == nil {
				assert.Empty(t, out)

				return
			}

			var got accessEntry
			require.NoError(t, json.Unmarshal([]byte(out), &got), out)

			if tt.want.Status == fiber.StatusNotFound {
				tt.want.User = got.User
			}

			assert.Equal(t, *tt.want, got)
		})
	}
}

func serve(t *testing.T, target string, cfg adapter.Config) string {
	t.Helper()

	stdout := os.Stdout

	r, w, err := os.Pipe()
	require.NoError(t, err)

	os.Stdout = w

	// adapter.New picks os.Stdout at construction time
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if c.Path() == "/" {
			c.Locals("uid", uint64(7))
		}

		return c.Next()
	})
	app.Use(adapter.New(cfg))
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/checkalive", func(c *fiber.Ctx) error { return c.SendString("ok") })

	_, testErr := app.Test(httptest.NewRequest(fiber.MethodGet, target, nil), -1)

	outC := make(chan string)

	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, r)
		outC <- buf.String()
	}()

	_ = w.Close()
	os.Stdout = stdout

	require.NoError(t, testErr)

	return <-outC
}
