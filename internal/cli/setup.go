package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/harun/farebridge/internal/config"
	"github.com/harun/farebridge/internal/logger"
	"github.com/harun/farebridge/internal/metrics"
	"github.com/harun/farebridge/pkg/direct"
	"github.com/harun/farebridge/pkg/envelope"
	"github.com/harun/farebridge/pkg/gateway"
	"github.com/harun/farebridge/pkg/token"
)

// buildGateway wires a gateway from config: token cache, direct client and,
// when a server command is configured and the transport allows it, an MCP
// session. The returned cleanup closes the session and the logger.
func buildGateway(ctx context.Context) (*gateway.Gateway, func(), error) {
	cfg, err := config.NewLoader(cfgFile).Load()
	if err != nil {
		return nil, nil, err
	}

	cfg.Logging.Level = logLevel
	logg, err := logger.New(logger.Config{
		Level:     cfg.Logging.Level,
		File:      cfg.Logging.File,
		Console:   cfg.Logging.Console,
		Pretty:    cfg.Logging.Pretty,
		Redaction: cfg.Logging.Redaction,
	})
	if err != nil {
		return nil, nil, err
	}

	if err := cfg.Validate(); err != nil {
		logg.Close()
		return nil, nil, err
	}

	m := metrics.NewMetrics()

	baseURL := direct.BaseURL(cfg.Amadeus.Host)
	tokens := token.NewCache(cfg.Amadeus.ClientID, cfg.Amadeus.ClientSecret, direct.TokenURL(baseURL),
		token.WithObserver(func(err error) {
			m.TokenExchangesTotal.Inc()
			if err != nil {
				m.TokenExchangeErrorsTotal.Inc()
			}
		}))
	directClient := direct.NewClient(baseURL, tokens)
	gw := gateway.New(directClient,
		gateway.WithMCPCommand(cfg.MCP.Command),
		gateway.WithCallTimeout(time.Duration(cfg.MCP.CallTimeoutSeconds)*time.Second),
		gateway.WithRecorder(m),
		gateway.WithDefaults(gateway.Defaults{
			Currency:   cfg.Defaults.Currency,
			MaxResults: cfg.Defaults.MaxResults,
		}),
	)

	if preference() != gateway.DirectOnly && len(cfg.MCP.Command) > 0 {
		if err := gw.ConnectMCP(ctx); err != nil {
			// Not fatal under mcp_first: the direct transport covers it
			log.Warn().Err(err).Msg("MCP server unavailable")
		} else {
			m.MCPSessionsTotal.Inc()
			m.MCPSessionUp.Set(1)
		}
	}

	cleanup := func() {
		gw.DisconnectMCP()
		logg.Close()
	}
	return gw, cleanup, nil
}

func preference() gateway.Preference {
	switch transport {
	case "mcp_only":
		return gateway.ProtocolOnly
	case "direct_only":
		return gateway.DirectOnly
	default:
		return gateway.ProtocolFirst
	}
}

// printEnvelope writes the result as indented JSON on stdout; a failed
// envelope makes the command exit non-zero.
func printEnvelope(env envelope.Envelope) error {
	data, err := json.MarshalIndent(env, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	fmt.Fprintln(os.Stdout, string(data))

	if !env.Success {
		return fmt.Errorf("%s: %s", env.ErrorKind, env.Error)
	}
	return nil
}
