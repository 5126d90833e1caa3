// ABOUTME: Secret providers for API credentials
// ABOUTME: Resolves bearer tokens from env, files, or AWS Secrets Manager
package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// Provider resolves one named secret to its string value.
type Provider interface {
	GetSecret(ctx context.Context, name string) (string, error)
}

// EnvProvider reads secrets straight from environment variables.
type EnvProvider struct{}

func (EnvProvider) GetSecret(_ context.Context, name string) (string, error) {
	v := os.Getenv(name)
	if v == "" {
		return "", fmt.Errorf("env secret %s is not set", name)
	}
	return v, nil
}

// FileProvider reads secrets from files under a directory, one file per
// secret. Used for local development and container secret mounts.
type FileProvider struct {
	Dir string
}

func (p FileProvider) GetSecret(_ context.Context, name string) (string, error) {
	data, err := os.ReadFile(p.secretPath(name))
	if err != nil {
		return "", fmt.Errorf("failed to read secret %s: %w", name, err)
	}
	return strings.TrimSpace(string(data)), nil
}

func (p FileProvider) secretPath(name string) string {
	return p.Dir + string(os.PathSeparator) + name
}

// secretsManagerAPI is the slice of the AWS client we use.
type secretsManagerAPI interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// AWSProvider resolves secrets from AWS Secrets Manager by name or ARN.
type AWSProvider struct {
	Client secretsManagerAPI
}

func (p AWSProvider) GetSecret(ctx context.Context, name string) (string, error) {
	out, err := p.Client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: &name,
	})
	if err != nil {
		return "", fmt.Errorf("failed to fetch secret %s: %w", name, err)
	}
	if out.SecretString == nil {
		return "", fmt.Errorf("secret %s has no string value", name)
	}
	return *out.SecretString, nil
}

// ExtractToken handles the two shapes the token secret ships in: a plain
// string, or a JSON map keyed by HUBSPOT_TOKEN or token.
func ExtractToken(secret string) string {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return ""
	}
	var obj map[string]string
	if err := json.Unmarshal([]byte(secret), &obj); err == nil {
		if v := obj["HUBSPOT_TOKEN"]; v != "" {
			return v
		}
		if v := obj["token"]; v != "" {
			return v
		}
	}
	return secret
}
