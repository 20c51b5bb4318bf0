package http

import (
	"encoding/json"
	"time"

	"github.com/safetalk/safetalk-server/internal/core"
	"github.com/safetalk/safetalk-server/internal/proto"
	"github.com/safetalk/safetalk-server/internal/store"
)

func inboundToCommand(inbound proto.Inbound) (*core.Command, *proto.Error) {
	switch inbound.Type {
	case proto.InboundTypeConnect:
		var data proto.ConnectData
		if err := decodeData(inbound.Data, &data); err != nil {
			return nil, err
		}
		return &core.Command{
			Kind:     core.CommandConnect,
			Username: data.Username,
			Token:    data.Token,
		}, nil
	case proto.InboundTypeSend:
		var data proto.SendMessageData
		if err := decodeData(inbound.Data, &data); err != nil {
			return nil, err
		}
		return &core.Command{
			Kind:      core.CommandSendMessage,
			Sender:    data.Sender,
			Receiver:  data.Receiver,
			Text:      data.Message,
			Timestamp: data.Timestamp,
		}, nil
	case proto.InboundTypeMarkRead:
		var data proto.MarkAsReadData
		if err := decodeData(inbound.Data, &data); err != nil {
			return nil, err
		}
		return &core.Command{
			Kind:       core.CommandMarkRead,
			Username:   data.Username,
			MessageIDs: data.MessageIDs,
		}, nil
	case proto.InboundTypeTyping:
		var data proto.TypingData
		if err := decodeData(inbound.Data, &data); err != nil {
			return nil, err
		}
		return &core.Command{
			Kind:     core.CommandTyping,
			Sender:   data.Sender,
			Receiver: data.Receiver,
			IsTyping: data.IsTyping,
		}, nil
	default:
		return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "unknown message type"}
	}
}

func decodeData(raw json.RawMessage, v any) *proto.Error {
	if len(raw) == 0 {
		return &proto.Error{Code: core.ErrCodeBadRequest, Msg: "missing data"}
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return &proto.Error{Code: core.ErrCodeBadRequest, Msg: "malformed data"}
	}
	return nil
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventConnected:
		return eventOutbound(proto.EventConnected, proto.EventConnectedData{Username: event.User})
	case core.EventOnlineUsers:
		users := event.Users
		if users == nil {
			users = []string{}
		}
		return eventOutbound(proto.EventOnlineUsers, proto.EventOnlineUsersData{Users: users})
	case core.EventUserJoined:
		return eventOutbound(proto.EventUserJoined, proto.EventUserJoinedData{Username: event.User})
	case core.EventReceiveMessage:
		return eventOutbound(proto.EventReceiveMessage, messageFromCore(event.Message))
	case core.EventMessageSent:
		return eventOutbound(proto.EventMessageSent, proto.EventMessageSentData{
			ID:                  event.Message.ID,
			Status:              event.Status,
			IsBullying:          event.Message.IsBullying,
			BullyingProbability: event.Message.BullyingProbability,
			NeedsReview:         event.Message.NeedsReview,
			Timestamp:           formatTime(event.Message.CreatedAt),
		})
	case core.EventMessagesMarkedRead:
		return eventOutbound(proto.EventMessagesMarkedRead, proto.EventMarkedReadData{Count: event.Count})
	case core.EventUserTyping:
		return eventOutbound(proto.EventUserTyping, proto.EventUserTypingData{Sender: event.User, IsTyping: event.IsTyping})
	case core.EventError:
		if event.Error == nil {
			return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: "unknown", Msg: "unknown error"}}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Code: event.Error.Code, Msg: event.Error.Message},
		}
	default:
		return proto.Outbound{Type: proto.OutboundTypeEvent}
	}
}

func eventOutbound(name string, data any) proto.Outbound {
	return proto.Outbound{Type: proto.OutboundTypeEvent, Event: name, Data: data}
}

func messageFromCore(m core.Message) proto.Message {
	return proto.Message{
		ID:                  m.ID,
		Sender:              m.From,
		Receiver:            m.To,
		Message:             m.Text,
		Timestamp:           formatTime(m.CreatedAt),
		IsBullying:          m.IsBullying,
		BullyingProbability: m.BullyingProbability,
		IsRead:              m.IsRead,
	}
}

func messageFromRecord(m *store.Message) proto.Message {
	return messageFromCore(core.MessageFromRecord(m))
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
