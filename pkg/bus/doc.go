// Package bus defines the action-tagged messages exchanged between the
// crawler, the batch downloader and print views, and a Dispatcher that
// routes them to handlers.
//
// Replies keep the exact shapes callers expect: START_CRAWL answers
// {status, message?}, DOWNLOAD_BATCH {success, error?}, GET_AUTH_TOKEN
// {token} with null when absent, and PRINT_INVOICE {status, key?, message?}.
// CHECK_READY and CLOSE_PRINT_TAB have no reply.
package bus
