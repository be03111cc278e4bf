package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	hdwallet "github.com/miguelmota/go-ethereum-hdwallet"

	"github.com/1Eliaaaan/rugfi-ft/internal/wallet"
	"github.com/1Eliaaaan/rugfi-ft/pkg/logger"
	"github.com/1Eliaaaan/rugfi-ft/pkg/secretstore"
)

const defaultDerivationPath = "m/44'/60'/0'/0/0"

func main() {
	_ = godotenv.Load()

	if err := logger.InitDefault(); err != nil {
		fatal(fmt.Errorf("初始化日志失败: %w", err))
	}

	var (
		secretsPath  = flag.String("secrets", getenv("RUGFI_SECRETS_PATH", "data/secrets"), "badger 凭据库目录")
		fromMnemonic = flag.Bool("mnemonic", false, "从助记词派生私钥（默认直接输入十六进制私钥）")
		derivation   = flag.String("path", defaultDerivationPath, "助记词派生路径")
		presets      = flag.String("presets", "", "快捷买入档位，逗号分隔的 AVAX 数量（如 1,2,5），留空不修改")
		force        = flag.Bool("force", false, "已有私钥时覆盖")
	)
	flag.Parse()

	encKey, err := secretstore.ParseKey(os.Getenv("RUGFI_SECRETS_KEY"))
	if err != nil {
		fatal(fmt.Errorf("解析 RUGFI_SECRETS_KEY 失败: %w", err))
	}

	secrets, err := secretstore.Open(secretstore.OpenOptions{
		Path:          *secretsPath,
		EncryptionKey: encKey,
	})
	if err != nil {
		fatal(fmt.Errorf("打开凭据库失败: %w", err))
	}
	defer secrets.Close()

	if _, found, err := secrets.GetString(secretstore.KeyWalletPrivateKey); err != nil {
		fatal(err)
	} else if found && !*force {
		fatal(errors.New("凭据库里已有私钥（使用 -force 覆盖）"))
	}

	var keyHex string
	if *fromMnemonic {
		fmt.Fprintln(os.Stderr, "请输入助记词（12/15/18/21/24 个单词），输入完成后回车：")
		mn := readLine()
		if mn == "" {
			fatal(errors.New("助记词为空"))
		}
		keyHex, err = derivePrivateKey(mn, *derivation)
		if err != nil {
			fatal(err)
		}
	} else {
		fmt.Fprintln(os.Stderr, "请输入十六进制私钥（可带 0x 前缀），输入完成后回车：")
		keyHex = readLine()
	}

	// 先验证再入库
	w, err := wallet.FromPrivateKeyHex(keyHex)
	if err != nil {
		fatal(err)
	}

	if err := secrets.SetString(secretstore.KeyWalletPrivateKey, strings.TrimPrefix(keyHex, "0x")); err != nil {
		fatal(fmt.Errorf("写入私钥失败: %w", err))
	}
	fmt.Fprintf(os.Stderr, "钱包已导入: %s\n", w.Address().Hex())

	if *presets != "" {
		if err := savePresets(secrets, *presets); err != nil {
			fatal(err)
		}
		fmt.Fprintf(os.Stderr, "快捷买入档位已更新: %s\n", *presets)
	}
}

func derivePrivateKey(mnemonic, derivationPath string) (string, error) {
	hw, err := hdwallet.NewFromMnemonic(strings.TrimSpace(mnemonic))
	if err != nil {
		return "", fmt.Errorf("助记词无效: %w", err)
	}
	path, err := hdwallet.ParseDerivationPath(strings.TrimSpace(derivationPath))
	if err != nil {
		return "", fmt.Errorf("派生路径无效: %w", err)
	}
	acct, err := hw.Derive(path, false)
	if err != nil {
		return "", fmt.Errorf("派生失败: %w", err)
	}
	return hw.PrivateKeyHex(acct)
}

func savePresets(secrets *secretstore.Store, raw string) error {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		// 档位必须是合法数字
		var probe json.Number
		if err := json.Unmarshal([]byte(p), &probe); err != nil {
			return fmt.Errorf("档位无效: %q", p)
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return errors.New("档位列表为空")
	}
	return secrets.SetJSON(secretstore.KeyQuickBuyPresets, out)
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func readLine() string {
	br := bufio.NewReader(os.Stdin)
	s, _ := br.ReadString('\n')
	return strings.TrimSpace(s)
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "error:", err.Error())
	os.Exit(1)
}
