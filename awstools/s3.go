// Copyright (C) 2025 the mcp-auth-gateway authors. All rights reserved.
//
// mcp-auth-gateway is licensed under the Apache License Version 2.0.

package awstools

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	gateway "github.com/birenderpal/mcp-auth-gateway"
)

// s3API is the subset of the S3 client used by the S3 tools.
type s3API interface {
	ListBuckets(ctx context.Context, params *s3.ListBucketsInput,
		optFns ...func(*s3.Options)) (*s3.ListBucketsOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input,
		optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

func (t *Toolset) registerS3Tools(s *gateway.Server) {
	listBuckets := gateway.NewTool("listS3Buckets",
		gateway.WithDescription("List the caller's S3 buckets"))
	s.RegisterTool(listBuckets, t.handleListS3Buckets)

	listObjects := gateway.NewTool("listS3Objects",
		gateway.WithDescription("List objects in an S3 bucket"),
		gateway.WithString("bucketName",
			gateway.Description("Bucket to list"),
			gateway.Required()),
		gateway.WithString("prefix",
			gateway.Description("Key prefix filter")))
	s.RegisterTool(listObjects, t.handleListS3Objects)
}

func (t *Toolset) handleListS3Buckets(ctx context.Context, req *gateway.CallToolRequest) (*gateway.CallToolResult, error) {
	cfg, err := t.callerConfig(ctx)
	if err != nil {
		return gateway.NewErrorResult(fmt.Sprintf("Error listing S3 buckets: %v", err)), nil
	}

	out, err := t.newS3(cfg).ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return gateway.NewErrorResult(fmt.Sprintf("Error listing S3 buckets: %v", err)), nil
	}

	names := make([]string, 0, len(out.Buckets))
	for _, bucket := range out.Buckets {
		names = append(names, aws.ToString(bucket.Name))
	}
	bucketList := "No buckets found"
	if len(names) > 0 {
		bucketList = strings.Join(names, "\n")
	}
	return gateway.NewTextResult("S3 Buckets:\n" + bucketList), nil
}

func (t *Toolset) handleListS3Objects(ctx context.Context, req *gateway.CallToolRequest) (*gateway.CallToolResult, error) {
	bucketName, _ := req.Params.Arguments["bucketName"].(string)
	if bucketName == "" {
		return gateway.NewErrorResult("Error listing S3 objects: bucketName is required"), nil
	}
	prefix, _ := req.Params.Arguments["prefix"].(string)

	cfg, err := t.callerConfig(ctx)
	if err != nil {
		return gateway.NewErrorResult(fmt.Sprintf("Error listing S3 objects: %v", err)), nil
	}

	input := &s3.ListObjectsV2Input{Bucket: aws.String(bucketName)}
	if prefix != "" {
		input.Prefix = aws.String(prefix)
	}
	out, err := t.newS3(cfg).ListObjectsV2(ctx, input)
	if err != nil {
		return gateway.NewErrorResult(fmt.Sprintf("Error listing S3 objects: %v", err)), nil
	}

	keys := make([]string, 0, len(out.Contents))
	for _, object := range out.Contents {
		keys = append(keys, aws.ToString(object.Key))
	}
	objectList := "No objects found"
	if len(keys) > 0 {
		objectList = strings.Join(keys, "\n")
	}

	heading := fmt.Sprintf("Objects in %s", bucketName)
	if prefix != "" {
		heading = fmt.Sprintf("%s with prefix %s", heading, prefix)
	}
	return gateway.NewTextResult(heading + ":\n" + objectList), nil
}
