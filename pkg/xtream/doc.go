// Package xtream provides the pieces of the Xtream Codes API that xtreamctl
// needs: candidate endpoint generation, URL construction and decoding of the
// account payload.
//
// Xtream Codes panels expose two endpoints of interest:
//
//	{base}/player_api.php?username={user}&password={pass}
//	{base}/get.php?username={user}&password={pass}&type={type}
//
// The first returns a JSON object with user_info and server_info; the second
// returns an M3U playlist. Operators frequently move panels between ports and
// schemes, so GenerateEndpoints expands a saved address into every base URL
// worth trying:
//
//	for _, base := range xtream.GenerateEndpoints("example.com") {
//		u := xtream.PlayerAPIURL(base, xtream.Credentials{Username: "u", Password: "p"})
//		// ...
//	}
package xtream
