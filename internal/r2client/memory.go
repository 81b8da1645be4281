package r2client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// NewMemory returns a Client backed by an in-process object map with the
// same conditional write semantics as R2. It is meant for tests and local runs.
func NewMemory(bucket string) *Client {
	return &Client{api: &memoryAPI{objects: make(map[string]memoryObject)}, bucket: bucket}
}

type memoryObject struct {
	data []byte
	etag string
}

type memoryAPI struct {
	mu      sync.Mutex
	objects map[string]memoryObject
	seq     int
}

var errPrecondition = &smithy.GenericAPIError{Code: "PreconditionFailed", Message: "At least one of the pre-conditions you specified did not hold"}

func (m *memoryAPI) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := aws.ToString(in.Key)
	current, exists := m.objects[key]
	if aws.ToString(in.IfNoneMatch) == "*" && exists {
		return nil, errPrecondition
	}
	if in.IfMatch != nil && (!exists || strings.Trim(*in.IfMatch, "\"") != current.etag) {
		return nil, errPrecondition
	}

	m.seq++
	obj := memoryObject{data: data, etag: fmt.Sprintf("etag-%d", m.seq)}
	m.objects[key] = obj
	return &s3.PutObjectOutput{ETag: aws.String("\"" + obj.etag + "\"")}, nil
}

func (m *memoryAPI) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}
	return &s3.GetObjectOutput{
		Body: io.NopCloser(bytes.NewReader(obj.data)),
		ETag: aws.String("\"" + obj.etag + "\""),
	}, nil
}

func (m *memoryAPI) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{ETag: aws.String("\"" + obj.etag + "\"")}, nil
}

func (m *memoryAPI) DeleteObject(_ context.Context, in *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, aws.ToString(in.Key))
	return &s3.DeleteObjectOutput{}, nil
}
