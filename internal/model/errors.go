package model

import "errors"

var (
	ErrRoomNotFound      = errors.New("room not found")
	ErrRoomExists        = errors.New("room already exists")
	ErrInvalidTransition = errors.New("action not allowed in the current phase")
	ErrUnauthorized      = errors.New("player may not perform this action")
	ErrValidation        = errors.New("invalid input")
	ErrStorage           = errors.New("storage failure")
)
