package kms

import (
	"encoding/base64"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSignatureEnvelope(t *testing.T) {
	sig := base64.StdEncoding.EncodeToString([]byte("signature"))

	testCases := []struct {
		name     string
		envelope string
		version  int
		wantErr  bool
	}{
		{name: "bare version", envelope: "vault:1:" + sig, version: 1},
		{name: "prefixed version", envelope: "vault:v3:" + sig, version: 3},
		{name: "no delimiters", envelope: "badformat", wantErr: true},
		{name: "two fields", envelope: "vault:" + sig, wantErr: true},
		{name: "four fields", envelope: "vault:v1:" + sig + ":extra", wantErr: true},
		{name: "empty scheme", envelope: ":v1:" + sig, wantErr: true},
		{name: "non-numeric version", envelope: "vault:vx:" + sig, wantErr: true},
		{name: "zero version", envelope: "vault:v0:" + sig, wantErr: true},
		{name: "signed version", envelope: "vault:+1:" + sig, wantErr: true},
		{name: "leading zero", envelope: "vault:01:" + sig, wantErr: true},
		{name: "prefixed leading zero", envelope: "vault:v01:" + sig, wantErr: true},
		{name: "double prefix", envelope: "vault:vv1:" + sig, wantErr: true},
		{name: "bad base64", envelope: "vault:v1:not*base64", wantErr: true},
		{name: "empty signature", envelope: "vault:v1:", wantErr: true},
		{name: "empty envelope", envelope: "", wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			env, err := ParseSignatureEnvelope(tc.envelope)
			if tc.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrMalformedEnvelope))
				assert.Nil(t, env)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "vault", env.Scheme)
			assert.Equal(t, tc.version, env.Version)
			assert.Equal(t, []byte("signature"), env.Signature)
		})
	}
}

func TestSignatureEnvelope_String(t *testing.T) {
	env := &SignatureEnvelope{Scheme: "vault", Version: 2, Signature: []byte{1, 2, 3}}
	parsed, err := ParseSignatureEnvelope(env.String())
	require.NoError(t, err)
	assert.Equal(t, env, parsed)
	assert.Equal(t, "vault:v2:AQID", env.String())
}
