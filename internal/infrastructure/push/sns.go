package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	snstypes "github.com/aws/aws-sdk-go-v2/service/sns/types"
	"github.com/go-community-notifier/internal/config"
	"github.com/go-community-notifier/internal/domain"
	"github.com/go-community-notifier/internal/infrastructure/awscfg"
)

type snsAPI interface {
	CreatePlatformEndpoint(ctx context.Context, params *sns.CreatePlatformEndpointInput, optFns ...func(*sns.Options)) (*sns.CreatePlatformEndpointOutput, error)
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSProvider sends mobile push through AWS SNS platform applications.
// Device tokens are turned into platform endpoints on demand; CreatePlatformEndpoint is
// idempotent for an unchanged token.
type SNSProvider struct {
	client       snsAPI
	platformARNs map[domain.Platform]string
}

func NewSNSProvider(ctx context.Context, cfg *config.Config) (*SNSProvider, error) {
	awsCfg, err := awscfg.Load(ctx, cfg, cfg.SNSRegion)
	if err != nil {
		return nil, err
	}
	var clientOpts []func(*sns.Options)
	if cfg.AWSEndpointURL != "" {
		clientOpts = append(clientOpts, func(o *sns.Options) {
			o.BaseEndpoint = aws.String(cfg.AWSEndpointURL)
		})
	}
	return newSNSProvider(sns.NewFromConfig(awsCfg, clientOpts...), cfg.SNSPlatformARNIOS, cfg.SNSPlatformARNAndroid), nil
}

func newSNSProvider(client snsAPI, iosARN, androidARN string) *SNSProvider {
	arns := map[domain.Platform]string{}
	if iosARN != "" {
		arns[domain.PlatformIOS] = iosARN
	}
	if androidARN != "" {
		arns[domain.PlatformAndroid] = androidARN
		// Tokens without a platform tag are most often FCM registration ids.
		arns[domain.PlatformUnknown] = androidARN
	}
	return &SNSProvider{client: client, platformARNs: arns}
}

func (p *SNSProvider) Send(ctx context.Context, msg Message) error {
	appARN, ok := p.platformARNs[msg.Platform]
	if !ok {
		return fmt.Errorf("sns: no platform application configured for %q", msg.Platform)
	}
	ep, err := p.client.CreatePlatformEndpoint(ctx, &sns.CreatePlatformEndpointInput{
		PlatformApplicationArn: aws.String(appARN),
		Token:                  aws.String(msg.Token),
	})
	if err != nil {
		return classifyEndpointError(err)
	}
	body, err := snsMessage(msg)
	if err != nil {
		return err
	}
	_, err = p.client.Publish(ctx, &sns.PublishInput{
		TargetArn:        ep.EndpointArn,
		MessageStructure: aws.String("json"),
		Message:          aws.String(body),
	})
	return classifyPublishError(err)
}

// classifyEndpointError only blames the token when SNS names the Token parameter.
// A rejected PlatformApplicationArn is a configuration problem shared by every token.
func classifyEndpointError(err error) error {
	var badParam *snstypes.InvalidParameterException
	if errors.As(err, &badParam) && strings.Contains(badParam.ErrorMessage(), "parameter: Token") {
		return invalidToken("sns", err)
	}
	return fmt.Errorf("sns create endpoint: %w", err)
}

// classifyPublishError treats a disabled endpoint as a dead token. InvalidParameter here
// means the message itself was rejected (size, structure), which says nothing about the token.
func classifyPublishError(err error) error {
	if err == nil {
		return nil
	}
	var disabled *snstypes.EndpointDisabledException
	if errors.As(err, &disabled) {
		return invalidToken("sns", err)
	}
	return fmt.Errorf("sns publish: %w", err)
}

// snsMessage builds the per-transport JSON envelope SNS expects with MessageStructure=json.
func snsMessage(msg Message) (string, error) {
	gcm, err := json.Marshal(map[string]interface{}{
		"notification": map[string]string{"title": msg.Title, "body": msg.Body},
		"data":         msg.Data,
	})
	if err != nil {
		return "", fmt.Errorf("marshal gcm payload: %w", err)
	}
	apnsPayload := map[string]interface{}{
		"aps": map[string]interface{}{
			"alert": map[string]string{"title": msg.Title, "body": msg.Body},
			"sound": "default",
		},
	}
	for k, v := range msg.Data {
		if k != "aps" {
			apnsPayload[k] = v
		}
	}
	apns, err := json.Marshal(apnsPayload)
	if err != nil {
		return "", fmt.Errorf("marshal apns payload: %w", err)
	}
	out, err := json.Marshal(map[string]string{
		"default":      msg.Body,
		"GCM":          string(gcm),
		"APNS":         string(apns),
		"APNS_SANDBOX": string(apns),
	})
	if err != nil {
		return "", fmt.Errorf("marshal sns message: %w", err)
	}
	return string(out), nil
}
