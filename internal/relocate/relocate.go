// Package relocate moves a processed object into the target bucket using the
// copy, verify, delete protocol.
package relocate

import (
	"context"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

// processedPrefix is where relocated objects land inside the target bucket.
const processedPrefix = "processed/"

// defaultWaitTimeout bounds the destination existence poll.
const defaultWaitTimeout = 2 * time.Minute

// S3API is the subset of the S3 client the relocator uses. It embeds the SDK's
// HeadObject interface so the object-exists waiter can poll through it.
type S3API interface {
	s3.HeadObjectAPIClient
	CopyObject(ctx context.Context, params *s3.CopyObjectInput, optFns ...func(*s3.Options)) (*s3.CopyObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Result describes a completed relocation.
type Result struct {
	BucketName  string
	ObjectKey   string
	NewLocation string
}

// PartialMoveError reports a relocation that aborted partway. CopyDone and
// Verified record which phases completed, so a caller knows whether both the
// source and the copy exist and can build its own cleanup. There is no
// compensation here: a failure after the copy leaves two objects behind.
type PartialMoveError struct {
	CopyDone bool
	Verified bool
	Err      error
}

func (e *PartialMoveError) Error() string {
	return fmt.Sprintf("relocation aborted (copyDone=%t verified=%t): %v", e.CopyDone, e.Verified, e.Err)
}

func (e *PartialMoveError) Unwrap() error { return e.Err }

// Relocator moves objects into a fixed target bucket.
type Relocator struct {
	client       S3API
	targetBucket string
	waitTimeout  time.Duration
}

// NewRelocator creates a Relocator that moves objects into targetBucket.
func NewRelocator(client S3API, targetBucket string) *Relocator {
	return &Relocator{
		client:       client,
		targetBucket: targetBucket,
		waitTimeout:  defaultWaitTimeout,
	}
}

// Move copies bucket/key to processed/<basename> in the target bucket, waits
// for the destination to exist, then deletes the source. The three phases run
// strictly in order; the first failure aborts the remainder and is reported as
// a *PartialMoveError carrying the phases that did complete.
func (r *Relocator) Move(ctx context.Context, bucket, key string) (Result, error) {
	destKey := processedPrefix + path.Base(key)

	_, err := r.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(r.targetBucket),
		Key:        aws.String(destKey),
		CopySource: aws.String(bucket + "/" + key),
	})
	if err != nil {
		return Result{}, &PartialMoveError{Err: fmt.Errorf("copy %s/%s: %w", bucket, key, err)}
	}
	log.Debug().Str("bucket", bucket).Str("key", key).Str("destKey", destKey).Msg("Copy accepted")

	waiter := s3.NewObjectExistsWaiter(r.client)
	err = waiter.Wait(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(r.targetBucket),
		Key:    aws.String(destKey),
	}, r.waitTimeout)
	if err != nil {
		return Result{}, &PartialMoveError{CopyDone: true, Err: fmt.Errorf("wait for %s/%s: %w", r.targetBucket, destKey, err)}
	}

	_, err = r.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return Result{}, &PartialMoveError{CopyDone: true, Verified: true, Err: fmt.Errorf("delete %s/%s: %w", bucket, key, err)}
	}

	newLocation := r.targetBucket + "/" + destKey
	log.Info().
		Str("bucket", bucket).
		Str("key", key).
		Str("newLocation", newLocation).
		Msg("Object relocated")

	return Result{BucketName: bucket, ObjectKey: key, NewLocation: newLocation}, nil
}
