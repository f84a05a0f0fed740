package automod

import (
	"github.com/guildwarden/warden/automod/engine"
)

type Engine = engine.Engine
type RuleSet = engine.RuleSet
type Platform = engine.Platform
type Message = engine.Message

type Notifier = engine.Notifier
type SlackNotifier = engine.SlackNotifier
type KafkaNotifier = engine.KafkaNotifier

type MessageContext = engine.MessageContext
type MessageRuleFunc = engine.MessageRuleFunc

type AdminCommand = engine.AdminCommand
type AdminResult = engine.AdminResult

var (
	NewKafkaNotifier = engine.NewKafkaNotifier
)
