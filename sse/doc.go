// Package sse streams server-sent events to HTTP clients.
//
// A Hub fans published events out to every connected client whose topic
// filter matches. Publish never blocks: a client that falls behind loses
// events rather than stalling the publisher.
//
//	hub := sse.NewHub(log)
//	go hub.Run()
//	router.GET("/events", gin.WrapH(hub))
//	hub.Publish("connectivity", payload)
package sse
