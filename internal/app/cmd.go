package app

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandServe はGraphQL APIサーバーとして起動することを示す。
	CommandServe Command = "serve"
	// CommandWorker はキャッシュ更新ワーカーとして起動することを示す。
	CommandWorker Command = "worker"
	// CommandMigrate はデータベーススキーマを最新化して終了することを示す。
	CommandMigrate Command = "migrate"
	// CommandHealthcheck は稼働中のサーバーへの疎通確認を行うことを示す。
	// distrolessイメージにはシェルがないため、Dockerのヘルスチェックはこれを使う。
	CommandHealthcheck Command = "healthcheck"
)

// ParseCommand は先頭のコマンドライン引数をサブコマンドとして解釈する。
// 引数なし、または未知のサブコマンドはCommandServeにフォールバックする。
func ParseCommand(args []string) Command {
	if len(args) == 0 {
		return CommandServe
	}

	switch cmd := Command(args[0]); cmd {
	case CommandServe, CommandWorker, CommandMigrate, CommandHealthcheck:
		return cmd
	default:
		return CommandServe
	}
}
