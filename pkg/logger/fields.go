package logger

const (
	FieldError   = "error"
	FieldChatID  = "chat_id"
	FieldActorID = "actor_id"
	FieldStep    = "step"
	FieldToken   = "token"
	FieldChannel = "channel"
	FieldCount   = "count"
)
