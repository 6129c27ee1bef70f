//go:build wireinject

package main

import (
	"github.com/bradfitz/gomemcache/memcache"
	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/wjayesh/mahilo/core"
	"github.com/wjayesh/mahilo/x/connection"
	"github.com/wjayesh/mahilo/x/delivery"
	"github.com/wjayesh/mahilo/x/event"
	"github.com/wjayesh/mahilo/x/message"
	"github.com/wjayesh/mahilo/x/policy"
	"github.com/wjayesh/mahilo/x/relationship"
	"github.com/wjayesh/mahilo/x/safeurl"
)

var relationshipProvider = wire.NewSet(relationship.NewService, relationship.NewRepository)
var connectionProvider = wire.NewSet(connection.NewService, connection.NewRepository, safeurl.NewService)
var policyProvider = wire.NewSet(policy.NewService, policy.NewRepository, newJudgeClient, relationshipProvider)
var deliveryProvider = wire.NewSet(delivery.NewDispatcher, newHTTPClient, message.NewRepository, event.NewPublisher)

func SetupSchedulerService(db *gorm.DB, rdb *redis.Client, mc *memcache.Client, config core.Config) core.SchedulerService {
	wire.Build(delivery.NewScheduler, deliveryProvider, connectionProvider)
	return nil
}

func SetupMessageService(db *gorm.DB, rdb *redis.Client, mc *memcache.Client, scheduler core.SchedulerService, config core.Config) core.MessageService {
	wire.Build(message.NewService, deliveryProvider, connectionProvider, policyProvider)
	return nil
}

func SetupConnectionService(db *gorm.DB, mc *memcache.Client, config core.Config) core.ConnectionService {
	wire.Build(connectionProvider)
	return nil
}

func SetupPolicyService(db *gorm.DB, config core.Config) core.PolicyService {
	wire.Build(policyProvider)
	return nil
}
