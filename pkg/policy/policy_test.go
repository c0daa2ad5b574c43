package policy_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/CityOfZion/neoq/pkg/gossip"
	"github.com/CityOfZion/neoq/pkg/policy"
)

func TestTableEnqueuePolicyMissingRowIsEmpty(t *testing.T) {
	p := policy.NewTableEnqueuePolicy()
	instrs := p.Instructions(gossip.MPC, gossip.OriginSender())
	require.Empty(t, instrs)
}

func TestTableEnqueuePolicyDistinguishesOrigin(t *testing.T) {
	p := policy.NewTableEnqueuePolicy().
		SetSender(gossip.Transaction, []policy.Instruction{{Kind: policy.EnqueueAll, Prec: gossip.Medium}}).
		SetForward(gossip.Transaction, []policy.Instruction{{Kind: policy.EnqueueAll, Prec: gossip.Low}})

	sent := p.Instructions(gossip.Transaction, gossip.OriginSender())
	require.Equal(t, gossip.Medium, sent[0].Prec)

	forwarded := p.Instructions(gossip.Transaction, gossip.OriginForward("c1"))
	require.Equal(t, gossip.Low, forwarded[0].Prec)
}

func TestTableDequeuePolicyFallsBackToConservativeDefault(t *testing.T) {
	p := policy.NewTableDequeuePolicy(map[gossip.NodeType]policy.DequeueParams{
		gossip.Core: {MaxInFlight: 10},
	})
	require.Equal(t, 10, p.Params(gossip.Core).MaxInFlight)
	require.Equal(t, 1, p.Params(gossip.Edge).MaxInFlight)
	require.False(t, p.Params(gossip.Edge).RateLimit.HasLimit)
}

func TestTableFailurePolicyFallback(t *testing.T) {
	p := policy.NewTableFailurePolicy(time.Minute, map[gossip.NodeType]time.Duration{
		gossip.Core: 5 * time.Second,
	})
	require.Equal(t, 5*time.Second, p.ReconsiderAfter(gossip.Core, gossip.Transaction, errors.New("x")))
	require.Equal(t, time.Minute, p.ReconsiderAfter(gossip.Relay, gossip.Transaction, errors.New("x")))
}

func TestDefaultsProvidedForAllFiveProfiles(t *testing.T) {
	for _, profile := range []policy.Profile{
		policy.CoreProfile, policy.RelayProfile,
		policy.EdgeBehindNATProfile, policy.EdgeExchangeProfile, policy.EdgeP2PProfile,
	} {
		enq, deq, fail := policy.Defaults(profile)
		require.NotNil(t, enq)
		require.NotNil(t, deq)
		require.NotNil(t, fail)
	}
}

func TestCoreProfileBroadcastsAnnounceToCoreAndRelay(t *testing.T) {
	enq, _, _ := policy.Defaults(policy.CoreProfile)
	instrs := enq.Instructions(gossip.AnnounceBlockHeader, gossip.OriginSender())
	require.Len(t, instrs, 2)
	require.Equal(t, gossip.Highest, instrs[0].Prec)
	require.Equal(t, gossip.High, instrs[1].Prec)
}
