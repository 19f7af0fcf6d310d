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
	"crypto/tls"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Comcast/mkernel/util"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTCouplings serves evaluation over MQTT.
//
// Requests arrive on the subscription topics.  A Reply goes to the
// Request's ReplyTo topic or else to DefaultReplyTopic.  Requests
// with the same Session share a Session.
type MQTTCouplings struct {
	Client            mqtt.Client
	Quiesce           uint
	SubTopics         string
	DefaultReplyTopic string

	k *Kernel
}

// NewMQTTCouplings parses the MQTT flags.  With nil args, only the
// FlagSet is returned (for usage).
func NewMQTTCouplings(ctx context.Context, k *Kernel, args []string) (*MQTTCouplings, *flag.FlagSet) {
	var (
		// Follow mosquitto_sub command line args.

		fs = flag.NewFlagSet("mq", flag.ExitOnError)

		broker    = fs.String("h", "tcp://localhost", "Broker hostname")
		clientId  = fs.String("i", "mkernel", "Client id")
		port      = fs.Int("p", 1883, "Broker port")
		keepAlive = fs.Int("k", 10, "Keep-alive in seconds")
		userName  = fs.String("u", "", "Username")
		password  = fs.String("P", "", "Password")
		reconnect = fs.Bool("reconnect", false, "Automatically attempt to reconnect")
		clean     = fs.Bool("c", true, "Clean session")
		quiesce   = fs.Int("quiesce", 100, "Disconnection quiescence (in milliseconds)")

		certFilename = fs.String("cert", "", "Optional cert filename")
		keyFilename  = fs.String("key", "", "Optional key filename")
		insecure     = fs.Bool("insecure", false, "Skip broker cert checking")

		subTopics  = fs.String("t", "mkernel/in", "subscription topic(s)")
		replyTopic = fs.String("reply-topic", "mkernel/out", "Default reply topic")
	)

	if args == nil {
		return nil, fs
	}

	fs.Parse(args)

	mqtt.ERROR = log.New(os.Stderr, "mqtt.error", 0)

	opts := mqtt.NewClientOptions()

	opts.AddBroker(fmt.Sprintf("%s:%d", *broker, *port))
	opts.SetClientID(*clientId)
	opts.SetKeepAlive(time.Second * time.Duration(*keepAlive))

	opts.Username = *userName
	opts.Password = *password
	opts.AutoReconnect = *reconnect
	opts.CleanSession = *clean

	tlsConf := &tls.Config{
		InsecureSkipVerify: *insecure,
	}
	if *keyFilename != "" {
		cert, err := tls.LoadX509KeyPair(*certFilename, *keyFilename)
		if err != nil {
			log.Fatal(err)
		}
		tlsConf.Certificates = []tls.Certificate{cert}
	}
	opts.SetTLSConfig(tlsConf)

	opts.OnConnectionLost = func(client mqtt.Client, err error) {
		log.Printf("MQTT connection lost: %v", err)
	}

	c := &MQTTCouplings{
		Quiesce:           uint(*quiesce),
		SubTopics:         *subTopics,
		DefaultReplyTopic: *replyTopic,
		k:                 k,
	}

	opts.DefaultPublishHandler = func(client mqtt.Client, msg mqtt.Message) {
		topic, qos, payload := c.handle(ctx, msg.Topic(), msg.Payload())
		token := client.Publish(topic, qos, false, payload)
		if token.Wait() && token.Error() != nil {
			log.Printf("Publish error: %s", token.Error())
		}
	}

	c.Client = mqtt.NewClient(opts)

	return c, fs
}

// handle evaluates one request payload and returns where to send the
// reply.
func (c *MQTTCouplings) handle(ctx context.Context, topic string, payload []byte) (string, byte, []byte) {
	util.Logf("incoming: %s %s", topic, payload)

	replyTopic, qos := parseTopic(c.DefaultReplyTopic)

	var (
		req   Request
		reply *Reply
	)
	if err := json.Unmarshal(payload, &req); err != nil {
		reply = &Reply{Error: "can't parse: " + err.Error()}
	} else {
		if req.ReplyTo != "" {
			replyTopic, qos = parseTopic(req.ReplyTo)
		}
		s, err := c.k.Session(ctx, req.Session)
		if err != nil {
			reply = &Reply{Id: req.Id, Error: err.Error()}
		} else {
			s.Lock()
			reply = s.Do(ctx, &req)
			s.Unlock()
		}
	}

	js, err := json.Marshal(reply)
	if err != nil {
		js, _ = json.Marshal(&Reply{Id: reply.Id, Error: err.Error()})
	}
	return replyTopic, qos, js
}

// Start connects and subscribes.
func (c *MQTTCouplings) Start(ctx context.Context) error {
	log.Printf("Attempting to connect to broker")
	if token := c.Client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("Connected to broker")

	for _, topic := range strings.Split(c.SubTopics, ",") {
		topic, qos := parseTopic(topic)
		if topic == "" {
			continue
		}
		log.Printf("Subscribing to %s (%d)", topic, qos)
		if t := c.Client.Subscribe(topic, qos, nil); t.Wait() && t.Error() != nil {
			return t.Error()
		}
	}

	return nil
}

// Stop terminates the MQTT session.
func (c *MQTTCouplings) Stop(ctx context.Context) error {
	log.Printf("Disconnecting")
	c.Client.Disconnect(c.Quiesce)
	return nil
}

// parseTopic can extract QoS from a topic name of the form TOPIC:QOS.
func parseTopic(s string) (string, byte) {
	i := strings.LastIndex(s, ":")
	if i < 0 {
		return s, 0
	}
	n, err := strconv.Atoi(s[i+1:])
	if err != nil || n < 0 || 2 < n {
		return s, 0
	}
	return s[:i], byte(n)
}
