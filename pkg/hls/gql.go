package hls

type graphQLQuery struct {
	OperationName string           `json:"operationName"`
	Query         string           `json:"query"`
	Variables     graphQLVariables `json:"variables"`
}

type graphQLVariables struct {
	IsLive     bool   `json:"isLive"`
	IsVod      bool   `json:"isVod"`
	Login      string `json:"login"`
	PlayerType string `json:"playerType"`
	VodID      string `json:"vodID"`
}

type playbackAccessTokenResponse struct {
	Data struct {
		StreamPlaybackAccessToken playbackAccessToken `json:"streamPlaybackAccessToken"`
	} `json:"data"`
}

type playbackAccessToken struct {
	Signature string `json:"signature"`
	Value     string `json:"value"`
}

func newPlaybackAccessTokenQuery(login string) graphQLQuery {
	return graphQLQuery{
		OperationName: "PlaybackAccessToken_Template",
		Query:         `query PlaybackAccessToken_Template($login: String!, $isLive: Boolean!, $vodID: ID!, $isVod: Boolean!, $playerType: String!) {  streamPlaybackAccessToken(channelName: $login, params: {platform: "web", playerBackend: "mediaplayer", playerType: $playerType}) @include(if: $isLive) {    value    signature    __typename  }  videoPlaybackAccessToken(id: $vodID, params: {platform: "web", playerBackend: "mediaplayer", playerType: $playerType}) @include(if: $isVod) {    value    signature    __typename  }}`,
		Variables: graphQLVariables{
			IsLive:     true,
			Login:      login,
			PlayerType: "site",
		},
	}
}
