// Package event defines the pipeline's trigger surface: the S3 notification
// that fires the dispatch Lambda and the flat file event the workflow engine
// hands to the processing Lambda.
package event

import (
	"fmt"

	"github.com/aws/aws-lambda-go/events"
)

// ObjectRef identifies one object in a bucket.
type ObjectRef struct {
	Bucket string
	Key    string
}

// FileEvent is the flat trigger shape used by Step Functions task states.
// Either bucket field is accepted; SourceBucket wins when both are set.
type FileEvent struct {
	BucketName   string `json:"bucketName"`
	SourceBucket string `json:"sourceBucket"`
	ObjectKey    string `json:"objectKey"`
}

// Ref resolves the FileEvent to an ObjectRef.
func (e FileEvent) Ref() (ObjectRef, error) {
	bucket := e.SourceBucket
	if bucket == "" {
		bucket = e.BucketName
	}
	if bucket == "" || e.ObjectKey == "" {
		return ObjectRef{}, fmt.Errorf("file event missing bucket or key: %+v", e)
	}
	return ObjectRef{Bucket: bucket, Key: e.ObjectKey}, nil
}

// Refs extracts every object referenced by an S3 notification. All records
// are processed, not only the first; a record without a bucket or key is an
// error rather than a silent skip.
func Refs(s3Event events.S3Event) ([]ObjectRef, error) {
	if len(s3Event.Records) == 0 {
		return nil, fmt.Errorf("S3 event contains no records")
	}

	refs := make([]ObjectRef, 0, len(s3Event.Records))
	for i, record := range s3Event.Records {
		bucket := record.S3.Bucket.Name
		key := record.S3.Object.Key
		if bucket == "" || key == "" {
			return nil, fmt.Errorf("S3 event record %d missing bucket or key", i)
		}
		refs = append(refs, ObjectRef{Bucket: bucket, Key: key})
	}
	return refs, nil
}
