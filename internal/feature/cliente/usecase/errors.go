package usecase

import "errors"

// ErrNoChangeFeed is returned by Subscribe when no ChangeNotifier is configured.
var ErrNoChangeFeed = errors.New("change feed is not configured")
