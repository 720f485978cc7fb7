package nats

import (
	"github.com/nats-io/nats.go/micro"

	"github.com/flarexio/ecochat"
)

func AddEndpoints(group micro.Group, endpoints ecochat.EndpointSet) {
	group.AddEndpoint("start_session", StartSessionHandler(endpoints.StartSession))
	group.AddEndpoint("end_session", EndSessionHandler(endpoints.EndSession))
	group.AddEndpoint("update_settings", UpdateSettingsHandler(endpoints.UpdateSettings))
	group.AddEndpoint("send_message", SendMessageHandler(endpoints.SendMessage))
	group.AddEndpoint("history", HistoryHandler(endpoints.History))
}
