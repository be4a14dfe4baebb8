// Package transports imports every built-in backend so each registers itself
// with the default registry.
package transports

import (
	_ "github.com/drblury/matchwire/transport/aws"
	_ "github.com/drblury/matchwire/transport/channel"
	_ "github.com/drblury/matchwire/transport/http"
	_ "github.com/drblury/matchwire/transport/io"
	_ "github.com/drblury/matchwire/transport/kafka"
	_ "github.com/drblury/matchwire/transport/nats"
	_ "github.com/drblury/matchwire/transport/rabbitmq"
	_ "github.com/drblury/matchwire/transport/stream"
)
