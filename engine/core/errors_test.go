package core

import (
	"testing"

	"github.com/bmizerany/assert"
	"github.com/pkg/errors"

	"github.com/metaverse/metaverse-server/engine/db"
	"github.com/metaverse/metaverse-server/engine/obj"
	"github.com/metaverse/metaverse-server/engine/proto"
)

func TestErrorMessageOf(t *testing.T) {
	cases := []struct {
		err      error
		wantType string
	}{
		{NewSessionError("limit reached"), ET_SESSION},
		{&AlreadyEnteredError{WorldName: "W1"}, ET_ENTERED},
		{&WorldNotFoundError{WorldName: "W1"}, ET_NOWORLD},
		{NewProtocolError("unknown command"), ET_PROTOCOL},
		{db.ErrNotFound, ET_NOOBJECT},
		{errors.New("boom"), ET_INTERNAL},
	}
	for _, tc := range cases {
		msg := ErrorMessageOf(tc.err)
		assert.Equal(t, tc.wantType, msg.Type)
		assert.T(t, msg.Message != "", "error message should not be empty")
	}
}

func TestErrorMessageOfWrapped(t *testing.T) {
	// wrapping must not hide the cause
	err := errors.Wrap(db.ErrNotFound, "loading chair")
	assert.Equal(t, ET_NOOBJECT, ErrorMessageOf(err).Type)
}

func TestRegistryUnknownCommand(t *testing.T) {
	_, err := NewCommand("Bogus")
	if _, ok := err.(*ProtocolError); !ok {
		t.Fatalf("expected ProtocolError, got %v", err)
	}
}

func TestRegisterAndCreate(t *testing.T) {
	tag := "TestOnly"
	RegisterCommand(tag, func() Command { return &fakeCommand{} })
	cmd, err := NewCommand(tag)
	assert.Equal(t, nil, err)
	if _, ok := cmd.(*fakeCommand); !ok {
		t.Fatalf("wrong command type: %T", cmd)
	}
}

type fakeCommand struct{}

func (f *fakeCommand) Execute(wm *WorldManager, c *obj.Client) (*proto.ClientResponse, error) {
	return nil, nil
}
