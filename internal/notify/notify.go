// Package notify sends the pipeline's completion email through SES.
package notify

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	sestypes "github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/rs/zerolog/log"
)

// subject is fixed; the processed object's key goes in the body.
const subject = "File processed"

// SESAPI is the subset of the SES v2 client the notifier uses.
type SESAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// Notifier sends single completion emails. There is no retry: a transient
// send failure surfaces to the pipeline's failure path.
type Notifier struct {
	client SESAPI
	to     string
	from   string
}

// NewNotifier creates a Notifier for the given recipient and verified sender.
func NewNotifier(client SESAPI, to, from string) *Notifier {
	return &Notifier{client: client, to: to, from: from}
}

// FileProcessed sends exactly one email announcing that objectKey finished
// processing and where it now lives.
func (n *Notifier) FileProcessed(ctx context.Context, objectKey, newLocation string) error {
	body := fmt.Sprintf("The file %s has been processed and moved to %s.", objectKey, newLocation)

	_, err := n.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(n.from),
		Destination: &sestypes.Destination{
			ToAddresses: []string{n.to},
		},
		Content: &sestypes.EmailContent{
			Simple: &sestypes.Message{
				Subject: &sestypes.Content{Data: aws.String(subject)},
				Body: &sestypes.Body{
					Text: &sestypes.Content{Data: aws.String(body)},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("SendEmail to %s: %w", n.to, err)
	}

	log.Info().
		Str("to", n.to).
		Str("key", objectKey).
		Msg("Notification sent")
	return nil
}
