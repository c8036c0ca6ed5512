package config

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog/log"
)

// ParameterGetter is the subset of the SSM client used to read configuration.
type ParameterGetter interface {
	GetParametersByPath(ctx context.Context, params *ssm.GetParametersByPathInput, optFns ...func(*ssm.Options)) (*ssm.GetParametersByPathOutput, error)
}

// WithSSM overlays parameters stored under CONFIG_SSM_PATH on top of cfg.
// Parameter names are reduced to their last path segment, so
// /consulting-site/prod/SUPABASE_JWT_SECRET becomes SUPABASE_JWT_SECRET.
// Values already present in the environment win.
func WithSSM(ctx context.Context, cfg map[string]string) (map[string]string, error) {
	prefix := GetString(cfg, "CONFIG_SSM_PATH", "")
	if prefix == "" {
		return cfg, nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return cfg, fmt.Errorf("load aws config: %w", err)
	}
	return overlaySSM(ctx, ssm.NewFromConfig(awsCfg), cfg, prefix)
}

func overlaySSM(ctx context.Context, client ParameterGetter, cfg map[string]string, prefix string) (map[string]string, error) {
	merged := make(map[string]string, len(cfg))
	for k, v := range cfg {
		merged[k] = v
	}

	var nextToken *string
	loaded := 0
	for {
		out, err := client.GetParametersByPath(ctx, &ssm.GetParametersByPathInput{
			Path:           aws.String(prefix),
			Recursive:      aws.Bool(true),
			WithDecryption: aws.Bool(true),
			NextToken:      nextToken,
		})
		if err != nil {
			return cfg, fmt.Errorf("read ssm parameters under %s: %w", prefix, err)
		}

		for _, p := range out.Parameters {
			key := strings.ToUpper(path.Base(aws.ToString(p.Name)))
			if _, set := merged[key]; set && merged[key] != "" {
				continue
			}
			merged[key] = aws.ToString(p.Value)
			loaded++
		}

		if out.NextToken == nil {
			break
		}
		nextToken = out.NextToken
	}

	log.Info().Str("path", prefix).Int("parameters", loaded).Msg("Loaded configuration from SSM")
	return merged, nil
}
