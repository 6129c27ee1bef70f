package main

import (
	"time"

	"github.com/wjayesh/mahilo/client"
	"github.com/wjayesh/mahilo/core"
	"github.com/wjayesh/mahilo/x/policy"
)

func newHTTPClient(config core.Config) client.Client {
	return client.NewClient(time.Duration(config.DeliveryTimeoutSeconds) * time.Second)
}

func newJudgeClient(config core.Config) core.JudgeClient {
	return policy.NewJudgeClient(config.Judge)
}
