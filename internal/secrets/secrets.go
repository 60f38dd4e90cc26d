// Package secrets resolves secret references such as env:NAME or
// aws-sm:prod/db#password into their values.
package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// Reference schemes.
const (
	SchemeEnv            = "env"
	SchemeFile           = "file"
	SchemeSecretsManager = "aws-sm"
	SchemeSSM            = "aws-ssm"
)

// ErrNotFound is returned when a reference points at nothing.
var ErrNotFound = errors.New("secret not found")

// SecretsManagerAPI is the subset of the Secrets Manager client used here.
type SecretsManagerAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// SSMAPI is the subset of the SSM client used here.
type SSMAPI interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// Options configures a Resolver. Nil clients are built lazily from the default
// AWS credential chain the first time an AWS reference is resolved.
type Options struct {
	Region         string
	SecretsManager SecretsManagerAPI
	SSM            SSMAPI
	LookupEnv      func(string) (string, bool)
	ReadFile       func(string) ([]byte, error)
}

// Resolver turns references into secret values. It never logs values.
type Resolver struct {
	mu     sync.Mutex
	region string
	sm     SecretsManagerAPI
	ssm    SSMAPI
	env    func(string) (string, bool)
	read   func(string) ([]byte, error)

	loadConfig func(ctx context.Context, region string) (aws.Config, error)
}

// NewResolver builds a Resolver.
func NewResolver(opts Options) *Resolver {
	r := &Resolver{
		region:     opts.Region,
		sm:         opts.SecretsManager,
		ssm:        opts.SSM,
		env:        opts.LookupEnv,
		read:       opts.ReadFile,
		loadConfig: loadAWSConfig,
	}
	if r.env == nil {
		r.env = os.LookupEnv
	}
	if r.read == nil {
		r.read = os.ReadFile
	}
	return r
}

// Reference is a parsed secret reference.
type Reference struct {
	Scheme string
	Path   string
	Key    string
}

// ParseReference splits scheme:path[#key]. The key is only meaningful for aws-sm.
func ParseReference(ref string) (Reference, error) {
	scheme, rest, ok := strings.Cut(strings.TrimSpace(ref), ":")
	if !ok || rest == "" {
		return Reference{}, fmt.Errorf("secret reference %q must look like scheme:value", ref)
	}

	parsed := Reference{Scheme: scheme, Path: rest}
	switch scheme {
	case SchemeEnv, SchemeFile, SchemeSSM:
	case SchemeSecretsManager:
		if id, key, hasKey := strings.Cut(rest, "#"); hasKey {
			parsed.Path, parsed.Key = id, key
		}
	default:
		return Reference{}, fmt.Errorf("unsupported secret scheme %q", scheme)
	}
	return parsed, nil
}

// Resolve returns the value behind ref.
func (r *Resolver) Resolve(ctx context.Context, ref string) (string, error) {
	parsed, err := ParseReference(ref)
	if err != nil {
		return "", err
	}

	switch parsed.Scheme {
	case SchemeEnv:
		value, ok := r.env(parsed.Path)
		if !ok {
			return "", fmt.Errorf("environment variable %s: %w", parsed.Path, ErrNotFound)
		}
		return value, nil
	case SchemeFile:
		data, err := r.read(parsed.Path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return "", fmt.Errorf("secret file %s: %w", parsed.Path, ErrNotFound)
			}
			return "", fmt.Errorf("read secret file %s: %w", parsed.Path, err)
		}
		return strings.TrimRight(string(data), "\r\n"), nil
	case SchemeSecretsManager:
		return r.fromSecretsManager(ctx, parsed)
	default:
		return r.fromSSM(ctx, parsed)
	}
}

func (r *Resolver) fromSecretsManager(ctx context.Context, ref Reference) (string, error) {
	client, err := r.secretsManager(ctx)
	if err != nil {
		return "", err
	}

	out, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: aws.String(ref.Path)})
	if err != nil {
		return "", fmt.Errorf("get secret %s: %w", ref.Path, err)
	}
	if out.SecretString == nil {
		return "", fmt.Errorf("secret %s has no string value: %w", ref.Path, ErrNotFound)
	}

	if ref.Key == "" {
		return *out.SecretString, nil
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(*out.SecretString), &fields); err != nil {
		return "", fmt.Errorf("secret %s is not a JSON object", ref.Path)
	}
	value, ok := fields[ref.Key]
	if !ok {
		return "", fmt.Errorf("secret %s key %s: %w", ref.Path, ref.Key, ErrNotFound)
	}
	if s, isString := value.(string); isString {
		return s, nil
	}
	return fmt.Sprint(value), nil
}

func (r *Resolver) fromSSM(ctx context.Context, ref Reference) (string, error) {
	client, err := r.ssmClient(ctx)
	if err != nil {
		return "", err
	}

	out, err := client.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(ref.Path),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("get parameter %s: %w", ref.Path, err)
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return "", fmt.Errorf("parameter %s: %w", ref.Path, ErrNotFound)
	}
	return *out.Parameter.Value, nil
}

func (r *Resolver) secretsManager(ctx context.Context) (SecretsManagerAPI, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sm == nil {
		cfg, err := r.loadConfig(ctx, r.region)
		if err != nil {
			return nil, err
		}
		r.sm = secretsmanager.NewFromConfig(cfg)
	}
	return r.sm, nil
}

func (r *Resolver) ssmClient(ctx context.Context) (SSMAPI, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ssm == nil {
		cfg, err := r.loadConfig(ctx, r.region)
		if err != nil {
			return nil, err
		}
		r.ssm = ssm.NewFromConfig(cfg)
	}
	return r.ssm, nil
}

func loadAWSConfig(ctx context.Context, region string) (aws.Config, error) {
	var optFns []func(*awsconfig.LoadOptions) error
	if region != "" {
		optFns = append(optFns, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return cfg, nil
}
