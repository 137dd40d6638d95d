package relocate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type fakeS3 struct {
	calls []string

	copyErr   error
	headErr   error
	deleteErr error
}

func (f *fakeS3) CopyObject(_ context.Context, params *s3.CopyObjectInput, _ ...func(*s3.Options)) (*s3.CopyObjectOutput, error) {
	f.calls = append(f.calls, "copy "+*params.CopySource+" -> "+*params.Bucket+"/"+*params.Key)
	if f.copyErr != nil {
		return nil, f.copyErr
	}
	return &s3.CopyObjectOutput{}, nil
}

func (f *fakeS3) HeadObject(_ context.Context, params *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.calls = append(f.calls, "head "+*params.Bucket+"/"+*params.Key)
	if f.headErr != nil {
		return nil, f.headErr
	}
	return &s3.HeadObjectOutput{}, nil
}

func (f *fakeS3) DeleteObject(_ context.Context, params *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	f.calls = append(f.calls, "delete "+*params.Bucket+"/"+*params.Key)
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	return &s3.DeleteObjectOutput{}, nil
}

func newTestRelocator(client *fakeS3) *Relocator {
	r := NewRelocator(client, "dst")
	r.waitTimeout = 200 * time.Millisecond
	return r
}

func TestMove_CopyVerifyDeleteInOrder(t *testing.T) {
	client := &fakeS3{}
	r := newTestRelocator(client)

	result, err := r.Move(context.Background(), "src", "f.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{
		"copy src/f.csv -> dst/processed/f.csv",
		"head dst/processed/f.csv",
		"delete src/f.csv",
	}
	if len(client.calls) != len(want) {
		t.Fatalf("expected calls %v, got %v", want, client.calls)
	}
	for i := range want {
		if client.calls[i] != want[i] {
			t.Errorf("call %d: expected %q, got %q", i, want[i], client.calls[i])
		}
	}

	if result.NewLocation != "dst/processed/f.csv" {
		t.Errorf("unexpected new location %q", result.NewLocation)
	}
	if result.BucketName != "src" || result.ObjectKey != "f.csv" {
		t.Errorf("unexpected source in result: %+v", result)
	}
}

func TestMove_NestedKeyUsesBasename(t *testing.T) {
	client := &fakeS3{}
	r := newTestRelocator(client)

	result, err := r.Move(context.Background(), "src", "incoming/2026/f.csv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.NewLocation != "dst/processed/f.csv" {
		t.Errorf("unexpected new location %q", result.NewLocation)
	}
}

func TestMove_CopyFailureAbortsEverything(t *testing.T) {
	client := &fakeS3{copyErr: errors.New("denied")}
	r := newTestRelocator(client)

	_, err := r.Move(context.Background(), "src", "f.csv")
	var partial *PartialMoveError
	if !errors.As(err, &partial) {
		t.Fatalf("expected *PartialMoveError, got %v", err)
	}
	if partial.CopyDone || partial.Verified {
		t.Errorf("expected no completed phases, got %+v", partial)
	}
	for _, call := range client.calls {
		if call == "delete src/f.csv" {
			t.Error("delete must not run after a failed copy")
		}
	}
}

func TestMove_VerifyFailureLeavesSource(t *testing.T) {
	client := &fakeS3{headErr: &types.NotFound{}}
	r := newTestRelocator(client)

	_, err := r.Move(context.Background(), "src", "f.csv")
	var partial *PartialMoveError
	if !errors.As(err, &partial) {
		t.Fatalf("expected *PartialMoveError, got %v", err)
	}
	if !partial.CopyDone {
		t.Error("copy phase did complete and must be reported")
	}
	if partial.Verified {
		t.Error("verify phase failed and must not be reported as done")
	}
	for _, call := range client.calls {
		if call == "delete src/f.csv" {
			t.Error("source must not be deleted when verification fails")
		}
	}
}

func TestMove_DeleteFailureReportsBothPhases(t *testing.T) {
	client := &fakeS3{deleteErr: errors.New("denied")}
	r := newTestRelocator(client)

	_, err := r.Move(context.Background(), "src", "f.csv")
	var partial *PartialMoveError
	if !errors.As(err, &partial) {
		t.Fatalf("expected *PartialMoveError, got %v", err)
	}
	if !partial.CopyDone || !partial.Verified {
		t.Errorf("expected copy and verify reported done, got %+v", partial)
	}
}
