package main

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"dit/errs"
	"dit/rendezvous"
	"dit/rendezvous/channel"
	"dit/rendezvous/server"
)

func TestGitCommandForwardsArgs(t *testing.T) {
	args := []string{"status", "--short"}
	cmd := gitCommand(args)
	require.Equal(t, append([]string{"git"}, args...), cmd.Args)
}

func TestShouldDegradeToPassthrough(t *testing.T) {
	require.True(t, shouldDegradeToPassthrough(errConfigMissing), "missing config.toml must degrade to passthrough")
	require.True(t, shouldDegradeToPassthrough(errs.Newf(errs.Connection, "rendezvous server unreachable")), "a Connection error must degrade to passthrough")
	require.False(t, shouldDegradeToPassthrough(errs.Newf(errs.Protocol, "bad share")), "a Protocol failure must not degrade to passthrough")
	require.False(t, shouldDegradeToPassthrough(errs.Newf(errs.User, "tag name is required")), "a User error must not degrade to passthrough")
}

func TestEndFailedOperationBlamesOnProtocolFailure(t *testing.T) {
	srv := httptest.NewServer(server.New().Router())
	defer srv.Close()

	admin := channel.New(srv.URL, "proj-blame", 0)
	_, err := admin.StartOperation(rendezvous.Operation{Kind: rendezvous.KindKeyGen, Participants: 2})
	require.NoError(t, err)

	endFailedOperation(admin, errs.Newf(errs.Protocol, "party 2 sent an invalid share"))

	op, err := admin.CurrentOperation()
	require.NoError(t, err)
	require.Equal(t, rendezvous.KindBlame, op.Kind)
}

func TestEndFailedOperationReturnsToIdleOnConnectionFailure(t *testing.T) {
	srv := httptest.NewServer(server.New().Router())
	defer srv.Close()

	admin := channel.New(srv.URL, "proj-idle", 0)
	_, err := admin.StartOperation(rendezvous.Operation{Kind: rendezvous.KindKeyGen, Participants: 2})
	require.NoError(t, err)

	endFailedOperation(admin, errs.Newf(errs.Connection, "rendezvous server unreachable"))

	op, err := admin.CurrentOperation()
	require.NoError(t, err)
	require.Equal(t, rendezvous.KindIdle, op.Kind)
}
