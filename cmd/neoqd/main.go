// Command neoqd is a demo binary wiring a mock transport to OutboundQ,
// in the cli.App style of the wider node's command-line entrypoint.
package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli"
	"go.uber.org/zap"

	"github.com/CityOfZion/neoq/pkg/config"
	"github.com/CityOfZion/neoq/pkg/gossip"
	"github.com/CityOfZion/neoq/pkg/metrics"
	"github.com/CityOfZion/neoq/pkg/outboundq"
	"github.com/CityOfZion/neoq/pkg/policy"
)

var configFlag = cli.StringFlag{
	Name:  "config, c",
	Usage: "path to a neoq YAML config file (optional; built-in defaults are used otherwise)",
}

var profileFlag = cli.StringFlag{
	Name:  "profile, p",
	Value: "EdgeP2P",
	Usage: "policy profile when no config file is given: Core, Relay, EdgeBehindNAT, EdgeExchange, EdgeP2P",
}

var peersFlag = cli.StringSliceFlag{
	Name:  "relay-peer",
	Usage: "id of a Relay peer to seed the demo bucket with (repeatable)",
}

func main() {
	app := cli.NewApp()
	app.Name = "neoqd"
	app.Usage = "run a demo outbound queue against a mock transport"
	app.Commands = []cli.Command{
		{
			Name:   "run",
			Usage:  "start the dequeue scheduler and broadcast a sample announcement",
			Flags:  []cli.Flag{configFlag, profileFlag, peersFlag},
			Action: runAction,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runAction(ctx *cli.Context) error {
	logger, err := zap.NewDevelopment()
	if err != nil {
		return cli.NewExitError(err, 1)
	}
	defer logger.Sync() //nolint:errcheck

	var enq policy.EnqueuePolicy
	var deq policy.DequeuePolicy
	var fail policy.FailurePolicy
	selfID := gossip.NodeID("neoqd-demo")

	if path := ctx.String("config"); path != "" {
		cfg, err := config.Load(path)
		if err != nil {
			return cli.NewExitError(fmt.Errorf("load config: %w", err), 1)
		}
		selfID = gossip.NodeID(cfg.SelfID)
		enq, _, _ = policy.Defaults(cfg.ResolveProfile())
		deq = cfg.DequeuePolicy()
		fail = cfg.FailurePolicy()
	} else {
		enq, deq, fail = policy.Defaults(profileFromFlag(ctx.String("profile")))
	}

	reg := prometheus.NewRegistry()
	collector := metrics.NewCollector(reg)

	q := outboundq.New(selfID, enq, deq, fail,
		outboundq.WithLogger(logger),
		outboundq.WithMetrics(collector))

	relayPeers := ctx.StringSlice("relay-peer")
	if len(relayPeers) == 0 {
		relayPeers = []string{"relay-1", "relay-2"}
	}
	ids := make([]gossip.NodeID, len(relayPeers))
	for i, p := range relayPeers {
		ids[i] = gossip.NodeID(p)
	}
	q.UpdatePeersBucket("demo", func(gossip.Peers) gossip.Peers {
		return gossip.SimplePeers(gossip.Relay, ids)
	})

	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go q.DequeueThread(runCtx, mockSendMsg(logger))

	q.Enqueue(gossip.Transaction, gossip.OriginSender(), "hello from neoqd")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down")
	q.WaitShutdown()
	return nil
}

func profileFromFlag(name string) policy.Profile {
	switch name {
	case "Core":
		return policy.CoreProfile
	case "Relay":
		return policy.RelayProfile
	case "EdgeBehindNAT":
		return policy.EdgeBehindNATProfile
	case "EdgeExchange":
		return policy.EdgeExchangeProfile
	default:
		return policy.EdgeP2PProfile
	}
}

// mockSendMsg simulates a flaky transport: most sends succeed quickly,
// a fraction fail, standing in for the real point-to-point collaborator.
func mockSendMsg(logger *zap.Logger) outboundq.SendMsg {
	return func(ctx context.Context, payload any, dest gossip.NodeID) (any, error) {
		select {
		case <-time.After(time.Duration(20+rand.Intn(80)) * time.Millisecond):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if rand.Intn(10) == 0 {
			return nil, fmt.Errorf("mock transport: %s unreachable", dest)
		}
		logger.Debug("delivered", zap.Stringer("dest", dest), zap.Any("payload", payload))
		return "ack", nil
	}
}
