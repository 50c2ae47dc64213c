package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"gitlab.com/dirk.krummacker/contactbook/pkg/model"
)

// client sends authenticated requests to the contacts API.
type client struct {
	baseURL string
	token   string
}

// Usage example on the command line:
// > go run main.go -token=$API_TOKEN -port=8080
func main() {
	tokenPtr := flag.String("token", "", "the API token of the user the contacts are created for")
	portPtr := flag.Int("port", 8080, "the port of the contacts service")
	flag.Parse()
	if *tokenPtr == "" {
		panic("the -token flag is required")
	}
	c := client{baseURL: fmt.Sprintf("http://localhost:%d/api", *portPtr), token: *tokenPtr}

	fmt.Println()
	fmt.Println("  Elements      POST     PATCH       GET    DELETE ")
	fmt.Println("---------------------------------------------------")
	sizes := []int{1000, 5000, 10000, 50000, 100000}
	jsonBody := []byte(`{
		"name": "Marcus Antonius",
		"email": "marcus@antonius.example.com",
		"phone": "+39 999 777 555",
		"birthday": "0027-11-09",
		"company": "Senatus Populusque Romanus"
	}`)
	patchBody := []byte(`{"phone": "+39 111 222 333"}`)
	for _, loops := range sizes {
		firstID, _ := c.sendPostRequest(bytes.NewReader(jsonBody))
		fmt.Printf("%10d", loops)
		{
			// POST requests
			var duration int64
			for i := 0; i < loops; i++ {
				_, d := c.sendPostRequest(bytes.NewReader(jsonBody))
				duration += d
			}
			fmt.Printf("%10d", duration/int64(loops*1000))
		}
		{
			// PATCH requests
			f := func(id int64) int64 {
				return c.sendContactRequest(id, http.MethodPatch, bytes.NewReader(patchBody))
			}
			callInLoop(firstID, loops, f)
		}
		{
			// GET requests
			f := func(id int64) int64 {
				return c.sendContactRequest(id, http.MethodGet, nil)
			}
			callInLoop(firstID, loops, f)
		}
		{
			// DELETE requests
			f := func(id int64) int64 {
				return c.sendContactRequest(id, http.MethodDelete, nil)
			}
			callInLoop(firstID, loops, f)
		}
		c.sendContactRequest(firstID, http.MethodDelete, nil)
		fmt.Println()
	}
}

func callInLoop(firstID int64, loops int, f func(id int64) int64) {
	ids := createRandomSliceWithIDs(firstID+1, loops)
	var duration int64
	for _, id := range ids {
		d := f(id)
		duration += d
	}
	fmt.Printf("%10d", duration/int64(loops*1000))
}

func createRandomSliceWithIDs(firstID int64, loops int) []int64 {
	ids := make([]int64, 0, loops)
	for i := 0; i < loops; i++ {
		ids = append(ids, firstID+int64(i))
	}
	rand.Shuffle(len(ids), func(i, j int) {
		ids[i], ids[j] = ids[j], ids[i]
	})
	return ids
}

func (c client) sendPostRequest(bodyReader io.Reader) (int64, int64) {
	resBody, duration := c.sendRequest(http.MethodPost, c.baseURL+"/contacts", bodyReader)
	var created model.Contact
	err := json.Unmarshal(resBody, &created)
	if err != nil {
		fmt.Println("could not unmarshal JSON", err)
		panic(err)
	}
	if created.Id == 0 {
		var apiError model.Error
		_ = json.Unmarshal(resBody, &apiError)
		panic(fmt.Sprintf("contact not created: %s %v", apiError.Message, apiError.Errors))
	}
	return created.Id, duration
}

func (c client) sendContactRequest(id int64, method string, bodyReader io.Reader) int64 {
	requestURL := fmt.Sprintf("%s/contact/%d", c.baseURL, id)
	_, duration := c.sendRequest(method, requestURL, bodyReader)
	return duration
}

func (c client) sendRequest(method string, requestURL string, bodyReader io.Reader) ([]byte, int64) {
	req, err := http.NewRequest(method, requestURL, bodyReader)
	if err != nil {
		fmt.Println("could not create request", err)
		panic(err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if bodyReader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	before := time.Now().UnixNano()
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Println("error making http request", err)
		panic(err)
	}
	defer res.Body.Close()
	resBody, err := io.ReadAll(res.Body)
	if err != nil {
		fmt.Println("could not read response body", err)
		panic(err)
	}
	after := time.Now().UnixNano()
	return resBody, after - before
}
