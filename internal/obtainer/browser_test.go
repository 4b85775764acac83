package obtainer

import (
	"errors"
	"testing"
)

func TestIsNetworkErr(t *testing.T) {
	cases := []struct {
		err     error
		network bool
	}{
		{errors.New("net::ERR_NAME_NOT_RESOLVED"), true},
		{errors.New("dial tcp: lookup example.test: DNS error"), true},
		{errors.New("context deadline exceeded: timeout"), true},
		{errors.New("javascript exception: TypeError"), false},
		{errors.New("page crashed"), false},
	}
	for _, c := range cases {
		if got := isNetworkErr(c.err); got != c.network {
			t.Errorf("isNetworkErr(%q) = %v, want %v", c.err, got, c.network)
		}
	}
}
