package server

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/coursesms/courses/internal/logging"
	"github.com/coursesms/courses/internal/server/config"
	"github.com/coursesms/courses/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	c := &config.Config{}
	c.LoadDefaults()
	c.DatabaseDSN = "file:" + filepath.Join(t.TempDir(), "app.db")
	c.AccessTokenSecret = "access"
	c.RefreshTokenSecret = "refresh"
	c.EndpointAddrGRPC = "127.0.0.1:0"
	c.MetricsAddr = ""
	return c
}

func TestOpenCore_SQLite(t *testing.T) {
	ctx := context.Background()
	core, err := OpenCore(ctx, testConfig(t), logging.Nop(), nil)
	require.NoError(t, err)
	defer core.Close()

	// Default scrypt cost: keep this to a single registration and login.
	_, err = core.Auth.Register(ctx, services.RegisterInput{
		FirstName: "Alice", LastName: "Smith", Email: "a@b.com", Password: "@B7lpxQ9!kW2zm",
	})
	require.NoError(t, err)

	pair, err := core.Auth.Login(ctx, services.LoginInput{Email: "a@b.com", Password: "@B7lpxQ9!kW2zm"})
	require.NoError(t, err)
	assert.True(t, core.Auth.IsAuthenticated("Bearer "+pair.AccessToken))
}

func TestOpenCore_BadConfig(t *testing.T) {
	c := testConfig(t)
	c.RefreshTokenSecret = c.AccessTokenSecret
	_, err := OpenCore(context.Background(), c, logging.Nop(), nil)
	assert.Error(t, err)

	c = testConfig(t)
	c.DatabaseDriver = "oracle"
	_, err = OpenCore(context.Background(), c, logging.Nop(), nil)
	assert.Error(t, err)
}

func TestApp_RunStopsOnCancel(t *testing.T) {
	app, err := NewApp(context.Background(), testConfig(t), logging.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		app.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("app did not stop")
	}
}
