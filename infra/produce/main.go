package produce

import (
	amqp "github.com/rabbitmq/amqp091-go"
)

type Produce struct {
	Cleanup *CleanupProduceService
}

var produceInstance *Produce

func InitProduce(channel *amqp.Channel) *Produce {
	if produceInstance != nil {
		return produceInstance
	}
	produceInstance = &Produce{
		Cleanup: InitCleanupProduceService(channel),
	}
	return produceInstance
}
