package flags

import (
	"strings"
	"testing"

	opservice "github.com/ethereum-optimism/optimism/op-service"
	"github.com/ethereum-optimism/optimism/op-service/cliapp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

// TestOptionalFlagsDontSetRequired asserts that all flags deemed optional set
// the Required field to false.
func TestOptionalFlagsDontSetRequired(t *testing.T) {
	for _, flag := range optionalFlags {
		reqFlag, ok := flag.(cli.RequiredFlag)
		require.True(t, ok)
		require.False(t, reqFlag.IsRequired())
	}
}

// TestUniqueFlags asserts that all flag names are unique, to avoid accidental conflicts between the many flags.
func TestUniqueFlags(t *testing.T) {
	seenCLI := make(map[string]struct{})
	for _, flag := range Flags {
		name := flag.Names()[0]
		if _, ok := seenCLI[name]; ok {
			t.Errorf("duplicate flag %s", name)
			continue
		}
		seenCLI[name] = struct{}{}
	}
}

func TestHasEnvVar(t *testing.T) {
	for _, flag := range Flags {
		flagName := flag.Names()[0]

		t.Run(flagName, func(t *testing.T) {
			envFlagGetter, ok := flag.(interface {
				GetEnvVars() []string
			})
			require.True(t, ok, "must be able to cast the flag to an EnvVar interface")
			envFlags := envFlagGetter.GetEnvVars()
			require.Equal(t, 1, len(envFlags), "flags should have exactly one env var")
		})
	}
}

func TestEnvVarFormat(t *testing.T) {
	for _, flag := range Flags {
		flagName := flag.Names()[0]

		t.Run(flagName, func(t *testing.T) {
			envFlagGetter, ok := flag.(interface {
				GetEnvVars() []string
			})
			require.True(t, ok, "must be able to cast the flag to an EnvVar interface")
			envFlags := envFlagGetter.GetEnvVars()
			require.Equal(t, 1, len(envFlags), "flags should have exactly one env var")
			expectedEnvVar := opservice.FlagNameToEnvVarName(flagName, EnvVarPrefix)
			require.Equal(t, expectedEnvVar, envFlags[0])
			require.True(t, strings.HasPrefix(envFlags[0], EnvVarPrefix+"_"))
		})
	}
}

func TestEmptyPolicy(t *testing.T) {
	t.Run("type methods", func(t *testing.T) {
		assert.Equal(t, "warn", EmptyPolicyWarn.String())
		for _, p := range ValidEmptyPolicies() {
			assert.True(t, p.IsValid())
		}
		assert.False(t, EmptyPolicy("ignore").IsValid())
		assert.False(t, EmptyPolicy("").IsValid())
	})

	t.Run("CLI flag validation", func(t *testing.T) {
		testCases := []struct {
			name        string
			args        []string
			expected    string
			shouldError bool
		}{
			{"valid warn", []string{"app", "--empty-policy", "warn"}, "warn", false},
			{"valid fail", []string{"app", "--empty-policy", "fail"}, "fail", false},
			{"invalid value", []string{"app", "--empty-policy", "ignore"}, "", true},
			{"no flag uses default", []string{"app"}, "pass", false},
		}

		for _, tc := range testCases {
			t.Run(tc.name, func(t *testing.T) {
				var got string
				app := &cli.App{
					Flags: []cli.Flag{EmptyPolicyFlag},
					Action: func(ctx *cli.Context) error {
						got = ctx.String(EmptyPolicyFlag.Name)
						return nil
					},
				}
				err := app.Run(tc.args)
				if tc.shouldError {
					assert.Error(t, err)
					return
				}
				require.NoError(t, err)
				assert.Equal(t, tc.expected, got)
			})
		}
	})
}

func TestCheckRequired(t *testing.T) {
	testCases := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"all required set", []string{"app", "--testdir", "/opt/tests", "--output", "out.xml"}, ""},
		{"missing output", []string{"app", "--testdir", "/opt/tests"}, "flag output is required"},
		{"missing testdir", []string{"app", "--output", "out.xml"}, "flag testdir is required"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			app := &cli.App{
				Flags: cliapp.ProtectFlags(Flags),
				Action: func(ctx *cli.Context) error {
					return CheckRequired(ctx)
				},
			}
			err := app.Run(tc.args)
			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tc.wantErr, err.Error())
		})
	}
}
