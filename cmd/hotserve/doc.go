// Command hotserve runs a config-driven development server.
//
//	hotserve start -c app.yaml            # serve once
//	hotserve start -c app.yaml --watch    # restart on every change
//	hotserve check -c app.yaml            # validate and summarise
//	hotserve route:list -c app.yaml       # print the route table
//
// In watch mode the config files themselves are watched, together with
// watch.paths from the config and any --watch-path directories.
package main
