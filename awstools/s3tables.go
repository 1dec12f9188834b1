// Copyright (C) 2025 the mcp-auth-gateway authors. All rights reserved.
//
// mcp-auth-gateway is licensed under the Apache License Version 2.0.

package awstools

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/s3tables"

	gateway "github.com/birenderpal/mcp-auth-gateway"
)

// s3TablesAPI is the subset of the S3 Tables client used here.
type s3TablesAPI interface {
	ListTableBuckets(ctx context.Context, params *s3tables.ListTableBucketsInput,
		optFns ...func(*s3tables.Options)) (*s3tables.ListTableBucketsOutput, error)
}

func (t *Toolset) registerS3TablesTools(s *gateway.Server) {
	listBuckets := gateway.NewTool("listS3TablesBuckets",
		gateway.WithDescription("List the caller's S3 table buckets"))
	s.RegisterTool(listBuckets, t.handleListS3TablesBuckets)
}

func (t *Toolset) handleListS3TablesBuckets(ctx context.Context, req *gateway.CallToolRequest) (*gateway.CallToolResult, error) {
	cfg, err := t.callerConfig(ctx)
	if err != nil {
		return gateway.NewErrorResult(fmt.Sprintf("Error listing S3Tables buckets: %v", err)), nil
	}

	out, err := t.newS3Tables(cfg).ListTableBuckets(ctx, &s3tables.ListTableBucketsInput{})
	if err != nil {
		return gateway.NewErrorResult(fmt.Sprintf("Error listing S3Tables buckets: %v", err)), nil
	}

	names := make([]string, 0, len(out.TableBuckets))
	for _, bucket := range out.TableBuckets {
		if bucket.Name != nil {
			names = append(names, *bucket.Name)
		}
	}

	bucketList := "No buckets found"
	if len(names) > 0 {
		bucketList = strings.Join(names, "\n")
	}
	return gateway.NewTextResult("S3Tables Buckets:\n" + bucketList), nil
}
