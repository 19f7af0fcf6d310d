/* Copyright 2018-2019 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/Comcast/mkernel/util"

	"github.com/gorilla/websocket"
)

// WebSocketHandler serves evaluation over websockets.
//
// The query parameter "session" names a persisted Session, which all
// connections (and MQTT requests) with that name share.  Without it,
// the connection gets its own Session, and its definitions die with
// the connection.
//
// Each text message is a Request, and each Request gets one Reply.
func (k *Kernel) WebSocketHandler(ctx context.Context) http.HandlerFunc {
	var upgrader = websocket.Upgrader{} // use default options

	return func(w http.ResponseWriter, r *http.Request) {
		var (
			sid     = r.URL.Query().Get("session")
			session *Session
			err     error
		)
		if sid == "" {
			session, err = k.NewSession(ctx, "")
		} else {
			session, err = k.Session(ctx, sid)
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Println("upgrade error", err)
			return
		}
		defer c.Close()

		util.Logf("ws connection %s session %q", c.RemoteAddr(), sid)

		for {
			mt, message, err := c.ReadMessage()
			if err != nil {
				util.Logf("ws read error %v", err)
				break
			}

			var reply *Reply
			var req Request
			if err := json.Unmarshal(message, &req); err != nil {
				reply = &Reply{
					Error: "can't parse: " + err.Error(),
				}
			} else {
				session.Lock()
				reply = session.Do(ctx, &req)
				session.Unlock()
			}

			js, err := json.Marshal(reply)
			if err != nil {
				log.Printf("ws Marshal error %v", err)
				continue
			}
			if err = c.WriteMessage(mt, js); err != nil {
				log.Println("ws write:", err)
				break
			}
		}
	}
}

// ServeWebSockets listens on the address until ctx is done.
func (k *Kernel) ServeWebSockets(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/kernel", k.WebSocketHandler(ctx))

	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		server.Close()
	}()

	log.Printf("serving websockets at %s/kernel", addr)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
