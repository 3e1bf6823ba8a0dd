// Command relaytoken mints a service token for the relay's HTTP API.
//
//	RELAY_JWT_SECRET=... relaytoken -service rides -scopes emit,read
//
// The token goes to stdout and its expiry to stderr, so the output can be
// piped straight into a secret store.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/thereayou/ride-relay/internal/config"
	"github.com/thereayou/ride-relay/pkg/auth"
)

var (
	service = flag.String("service", "", "Name of the calling service (token subject)")
	scopes  = flag.String("scopes", auth.ScopeEmit, "Comma separated scopes: emit, read")
)

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}

	jwtMgr := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)
	if err := mint(jwtMgr, *service, *scopes, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "cannot mint token: %v\n", err)
		os.Exit(1)
	}
}

func mint(m *auth.JWTManager, service, scopes string, stdout, stderr io.Writer) error {
	var granted []string
	for _, s := range strings.Split(scopes, ",") {
		if s = strings.TrimSpace(s); s != "" {
			granted = append(granted, s)
		}
	}

	token, err := m.Generate(service, granted...)
	if err != nil {
		return err
	}
	exp, err := m.Expiry(token)
	if err != nil {
		return err
	}

	fmt.Fprintln(stdout, token)
	fmt.Fprintf(stderr, "expires at %s\n", exp.UTC().Format(time.RFC3339))
	return nil
}
