package model

import "time"

// Attachment is a stored blob referenced by a message.
type Attachment struct {
	ID          string `json:"fileId"`
	Name        string `json:"originName"`
	MimeType    string `json:"mimeType,omitempty"`
	DownloadURL string `json:"downloadUrl"`
}

// MessageDTO is the one wire shape of a message, shared by REST responses and broadcasts.
type MessageDTO struct {
	ID             int64        `json:"id"`
	ThreadID       int64        `json:"threadId"`
	ChannelID      int64        `json:"channelId,omitempty"`
	UserIdentifier string       `json:"userIdentifier,omitempty"`
	UserName       string       `json:"userName,omitempty"`
	SenderType     string       `json:"senderType"`
	SenderName     string       `json:"senderName,omitempty"`
	MessageType    string       `json:"messageType"`
	Content        string       `json:"content"`
	FileName       string       `json:"fileName,omitempty"`
	FileURL        string       `json:"fileUrl,omitempty"`
	IsRead         bool         `json:"isRead"`
	ReadAt         *time.Time   `json:"readAt,omitempty"`
	CreatedAt      time.Time    `json:"createdAt"`
	UpdatedAt      time.Time    `json:"updatedAt"`
	Edited         bool         `json:"edited"`
	Attachments    []Attachment `json:"attachments,omitempty"`
}

// NewMessageDTO maps a stored message. thread may be nil when only the message is at hand.
func NewMessageDTO(m *Message, thread *Thread) MessageDTO {
	dto := MessageDTO{
		ID:          m.ID,
		ThreadID:    m.ThreadID,
		SenderType:  m.SenderType,
		SenderName:  m.SenderName,
		MessageType: m.MessageType,
		Content:     m.Content,
		FileName:    m.FileName,
		FileURL:     m.FileURL,
		IsRead:      m.IsRead,
		ReadAt:      m.ReadAt,
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
		Edited:      m.Edited(),
	}
	if m.FileURL != "" {
		dto.Attachments = []Attachment{{Name: m.FileName, DownloadURL: m.FileURL}}
	}
	if thread != nil {
		dto.ChannelID = thread.ChannelID
		dto.UserIdentifier = thread.UserIdentifier
		dto.UserName = thread.UserName
	}
	return dto
}

// MessageDTOPage is the REST shape of a message page.
type MessageDTOPage struct {
	Content       []MessageDTO `json:"content"`
	Number        int          `json:"number"`
	Size          int          `json:"size"`
	TotalElements int64        `json:"totalElements"`
	TotalPages    int          `json:"totalPages"`
}

// NewMessageDTOPage maps a page of messages belonging to thread.
func NewMessageDTOPage(p *MessagePage, thread *Thread) MessageDTOPage {
	out := MessageDTOPage{
		Content:       make([]MessageDTO, 0, len(p.Items)),
		Number:        p.Page,
		Size:          p.Size,
		TotalElements: p.Total,
		TotalPages:    p.TotalPages,
	}
	for i := range p.Items {
		out.Content = append(out.Content, NewMessageDTO(&p.Items[i], thread))
	}
	return out
}
