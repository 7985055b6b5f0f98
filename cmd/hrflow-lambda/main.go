// Package main is the entry point for the approval link Lambda.
package main

import (
	"github.com/aws/aws-lambda-go/lambda"
	approvalhandler "github.com/byteness/hrflow/lambda"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	router := approvalhandler.NewRouter(approvalhandler.NewHandler())
	lambda.Start(router.Route)
}
