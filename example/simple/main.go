package main

import (
	"os"

	"github.com/halvorsen-mail/mailmsg"
)

func main() {
	msg := mailmsg.NewMessage()
	msg.SetHeader("From", mailmsg.Addr(mailmsg.Mailbox{Addr: "john@example.com"}))
	msg.SetHeader("Sender", mailmsg.Addr(mailmsg.Mailbox{Addr: "john@example.com"}))
	msg.SetHeader("Reply-To", mailmsg.Addr(mailmsg.Mailbox{Addr: "reply@example.com"}))
	msg.SetHeader("To", mailmsg.Addr(mailmsg.AddressList{
		mailmsg.Mailbox{Addr: "bil@example.com"},
		mailmsg.Mailbox{Addr: "dan@example.com"},
	}))
	msg.SetHeader("Subject", mailmsg.Text("Check this out!"))

	msg.Root = mailmsg.Leaf("text/plain", []byte("https://www.youtube.com/watch?v=dQw4w9WgXcQ")).
		WithParam("charset", "utf-8")

	if _, err := msg.WriteTo(os.Stdout); err != nil {
		panic(err)
	}
}
