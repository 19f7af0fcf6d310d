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

// Package main is a kernel process.
//
// By default, mkernel reads FullForm inputs from stdin, one per line,
// and writes results to stdout.  With -json, each result is one line
// of JSON, which is what tools.Session.Run wants.  With -ws, mkernel
// serves websockets instead, and with -io mq it serves MQTT requests
// (flags after the MQTT flags go to the MQTT client).
//
//   mkernel -db kernel.db -session me
//   mkernel -db kernel.db -sessions
//   mkernel -ws :8080
//   mkernel -io mq -h tcp://localhost -t mkernel/in
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/Comcast/mkernel/core"
	"github.com/Comcast/mkernel/interpreters"
	"github.com/Comcast/mkernel/interpreters/goja"
	"github.com/Comcast/mkernel/storage"
	"github.com/Comcast/mkernel/storage/bolt"
	"github.com/Comcast/mkernel/util"
)

func main() {

	var (
		coupling   = flag.String("io", "std", `IO protocol: "std" or "mq"`)
		confFile   = flag.String("c", "", "Optional YAML config filename")
		dbFile     = flag.String("db", "", "Optional BoltDB filename for persistence")
		sid        = flag.String("session", "", "Session id for stdio persistence")
		list       = flag.Bool("sessions", false, "List stored sessions and exit")
		rm         = flag.String("rm", "", "Remove the stored session and exit")
		jsonOut    = flag.Bool("json", false, "Write results as JSON lines")
		wsAddr     = flag.String("ws", "", "Serve websockets at this address")
		libDir     = flag.String("l", "", "Directory for ECMAScript libraries")
		packages   = flag.String("p", "", "Comma-separated package filenames")
		iterations = flag.Int("iterations", 0, "$IterationLimit (if positive)")
		recursion  = flag.Int("recursion", 0, "$RecursionLimit (if positive)")
		verbose    = flag.Bool("v", false, "Verbose")
		debug      = flag.Bool("d", false, "Log each rewrite")
		help       = flag.Bool("h", false, "Get usage")
	)

	flag.Parse()

	if *help {
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\n-io mq:\n\n")
		_, fs := NewMQTTCouplings(context.TODO(), nil, nil)
		fs.PrintDefaults()
		os.Exit(0)
	}

	util.Logging = *verbose

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	conf := &Config{}
	if *confFile != "" {
		c, err := ReadConfig(*confFile)
		if err != nil {
			log.Fatal(err)
		}
		conf = c
	}
	if *dbFile != "" {
		conf.Storage = *dbFile
	}
	if *sid != "" {
		conf.Session = *sid
	}
	if *libDir != "" {
		conf.Libraries = *libDir
	}
	if *packages != "" {
		conf.Packages = append(conf.Packages, strings.Split(*packages, ",")...)
	}
	if *debug {
		conf.Debug = true
	}
	if conf.Control == nil {
		conf.Control = core.DefaultControl.Copy()
	}
	if 0 < *iterations {
		conf.Control.IterationLimit = *iterations
	}
	if 0 < *recursion {
		conf.Control.RecursionLimit = *recursion
	}

	is := interpreters.Standard()
	if conf.Libraries != "" {
		if g, ok := is["goja"].(*goja.Interpreter); ok {
			g.LibraryProvider = goja.MakeFileLibraryProvider(conf.Libraries)
		}
	}

	var store storage.Storage = &storage.NoopStorage{}
	if conf.Storage != "" {
		s, err := bolt.NewStorage(conf.Storage)
		if err != nil {
			log.Fatal(err)
		}
		s.Debug = conf.Debug
		store = s
	}
	if err := store.Open(ctx); err != nil {
		log.Fatal(err)
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			log.Printf("storage close error %v", err)
		}
	}()

	if *list || *rm != "" {
		if err := admin(ctx, store, *list, *rm, os.Stdout); err != nil {
			log.Fatal(err)
		}
		return
	}

	k, err := NewKernel(conf, is, store)
	if err != nil {
		log.Fatal(err)
	}

	switch {
	case *wsAddr != "":
		err = k.ServeWebSockets(ctx, *wsAddr)
	case *coupling == "mq" || *coupling == "mqtt":
		c, _ := NewMQTTCouplings(ctx, k, flag.Args())
		if err = c.Start(ctx); err != nil {
			break
		}
		<-ctx.Done()
		err = c.Stop(context.Background())
	case *coupling == "std":
		var s *Session
		if s, err = k.NewSession(ctx, conf.Session); err != nil {
			break
		}
		err = NewStdio(*jsonOut).Loop(ctx, s)
	default:
		err = fmt.Errorf("unknown io: '%s'", *coupling)
	}

	if err != nil && err != context.Canceled {
		log.Fatal(err)
	}
}

// admin lists or removes stored sessions.
func admin(ctx context.Context, store storage.Storage, list bool, rm string, out io.Writer) error {
	if rm != "" {
		if err := store.RemSession(ctx, rm); err != nil {
			return err
		}
	}
	if list {
		sids, err := store.Sessions(ctx)
		if err != nil {
			return err
		}
		for _, sid := range sids {
			fmt.Fprintln(out, sid)
		}
	}
	return nil
}
